package envpath

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/service/installer"
	"github.com/oshokin/gtk-bootstrap/internal/system"
	"github.com/oshokin/gtk-bootstrap/internal/system/systemtest"
)

const toolchainBin = `C:\msys64\ucrt64\bin`

// failingStore fails on write.
type failingStore struct {
	value string
}

func (s *failingStore) Read(_ context.Context) (string, error) {
	return s.value, nil
}

func (s *failingStore) Write(_ context.Context, _ string) error {
	return errors.New("access denied")
}

func TestAppend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{
			name:     "empty value",
			value:    "",
			expected: toolchainBin,
		},
		{
			name:     "regular value",
			value:    `C:\Windows;C:\Tools`,
			expected: `C:\Windows;C:\Tools;` + toolchainBin,
		},
		{
			name:     "trailing separator",
			value:    `C:\Windows;`,
			expected: `C:\Windows;` + toolchainBin,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.expected, Append(tt.value, toolchainBin, ";"))
		})
	}
}

func TestUpdater_EnsureIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(`C:\Windows`)
	updater := New(store, ";")

	result, err := updater.Ensure(context.Background(), toolchainBin)
	require.NoError(t, err)
	require.Equal(t, ResultAppended, result)

	result, err = updater.Ensure(context.Background(), toolchainBin)
	require.NoError(t, err)
	require.Equal(t, ResultAlreadyPresent, result)

	value, err := store.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, `C:\Windows;`+toolchainBin, value)
	require.Equal(t, 1, store.Writes())
}

// TestUpdater_EnsureSubstringMatch documents the loose containment check:
// a longer entry that contains the directory counts as present.
func TestUpdater_EnsureSubstringMatch(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(toolchainBin + `\extra`)

	result, err := New(store, ";").Ensure(context.Background(), toolchainBin)
	require.NoError(t, err)
	require.Equal(t, ResultAlreadyPresent, result)
	require.Zero(t, store.Writes())
}

func TestUpdater_EnsureWriteFailure(t *testing.T) {
	t.Parallel()

	_, err := New(&failingStore{value: `C:\Windows`}, ";").Ensure(context.Background(), toolchainBin)
	require.ErrorIs(t, err, ErrPersist)
}

func TestSetxStore(t *testing.T) {
	t.Parallel()

	fake := systemtest.New("/work", "/tmp")
	fake.SetEnv("PATH", `C:\Windows`)
	fake.RunFunc = func(_ context.Context, _ *system.Command) (int, error) {
		return 0, nil
	}

	store := NewSetxStore(fake, installer.New(fake), "setx", "PATH")

	result, err := New(store, ";").Ensure(context.Background(), toolchainBin)
	require.NoError(t, err)
	require.Equal(t, ResultAppended, result)

	commands := fake.Commands()
	require.Len(t, commands, 1)
	require.Equal(t, "setx", commands[0].Path)
	require.Equal(t, []string{"PATH", `C:\Windows;` + toolchainBin}, commands[0].Args)
}

func TestSetxStore_NonZeroExit(t *testing.T) {
	t.Parallel()

	fake := systemtest.New("/work", "/tmp")
	fake.RunFunc = func(_ context.Context, _ *system.Command) (int, error) {
		return 1, nil
	}

	store := NewSetxStore(fake, installer.New(fake), "setx", "PATH")

	_, err := New(store, ";").Ensure(context.Background(), toolchainBin)
	require.ErrorIs(t, err, ErrPersist)

	var exitErr *provision.ProcessExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.ExitCode)
}
