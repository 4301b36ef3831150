//go:build !windows

package envpath

import (
	"context"
	"errors"
)

// errRegistryUnsupported is returned by RegistryStore outside Windows.
var errRegistryUnsupported = errors.New("the registry store is only available on windows")

// RegistryStore persists the variable under HKCU\Environment on Windows.
// Elsewhere every call fails.
type RegistryStore struct {
	// variable is the value name under the Environment key.
	variable string
}

// NewRegistryStore creates a RegistryStore.
func NewRegistryStore(variable string) *RegistryStore {
	return &RegistryStore{variable: variable}
}

// Read always fails outside Windows.
func (s *RegistryStore) Read(_ context.Context) (string, error) {
	return "", errRegistryUnsupported
}

// Write always fails outside Windows.
func (s *RegistryStore) Write(_ context.Context, _ string) error {
	return errRegistryUnsupported
}
