//go:build windows

package envpath

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/oshokin/gtk-bootstrap/internal/logger"
)

const (
	// environmentKey holds the per-user persistent environment.
	environmentKey = `Environment`

	hwndBroadcast    = 0xFFFF
	wmSettingChange  = 0x001A
	smtoAbortIfHung  = 0x0002
	broadcastTimeout = 2000
)

// RegistryStore persists the variable under HKCU\Environment and notifies
// running shells of the change.
type RegistryStore struct {
	// variable is the value name under the Environment key.
	variable string
}

// NewRegistryStore creates a RegistryStore.
func NewRegistryStore(variable string) *RegistryStore {
	return &RegistryStore{variable: variable}
}

// Read returns the unexpanded user value; a missing value reads as empty.
func (s *RegistryStore) Read(_ context.Context) (string, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, environmentKey, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("open HKCU\\%s: %w", environmentKey, err)
	}

	defer func() {
		_ = key.Close()
	}()

	value, _, err := key.GetStringValue(s.variable)
	if errors.Is(err, registry.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.variable, err)
	}

	return value, nil
}

// Write stores value keeping the existing value type, then broadcasts
// WM_SETTINGCHANGE so new terminals see it.
func (s *RegistryStore) Write(ctx context.Context, value string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, environmentKey, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open HKCU\\%s: %w", environmentKey, err)
	}

	defer func() {
		_ = key.Close()
	}()

	_, valueType, err := key.GetStringValue(s.variable)
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("read %s: %w", s.variable, err)
	}

	if valueType == registry.SZ {
		err = key.SetStringValue(s.variable, value)
	} else {
		err = key.SetExpandStringValue(s.variable, value)
	}

	if err != nil {
		return fmt.Errorf("write %s: %w", s.variable, err)
	}

	if err = broadcastEnvironmentChange(); err != nil {
		logger.WarnKV(ctx, "Running programs were not notified of the PATH change", "error", err)
	}

	return nil
}

func broadcastEnvironmentChange() error {
	environment, err := windows.UTF16PtrFromString(environmentKey)
	if err != nil {
		return err
	}

	sendMessageTimeout := windows.NewLazySystemDLL("user32.dll").NewProc("SendMessageTimeoutW")
	if err = sendMessageTimeout.Find(); err != nil {
		return err
	}

	//nolint:gosec // The pointer is only used for the duration of the call.
	result, _, callErr := sendMessageTimeout.Call(
		uintptr(hwndBroadcast),
		uintptr(wmSettingChange),
		0,
		uintptr(unsafe.Pointer(environment)),
		uintptr(smtoAbortIfHung),
		uintptr(broadcastTimeout),
		0,
	)
	if result == 0 {
		return callErr
	}

	return nil
}
