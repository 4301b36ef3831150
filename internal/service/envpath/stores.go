package envpath

import (
	"context"
	"sync"

	"github.com/oshokin/gtk-bootstrap/internal/service/installer"
	"github.com/oshokin/gtk-bootstrap/internal/system"
)

// SetxStore reads the variable from the process environment and persists it
// with the setx utility, which writes the user environment.
type SetxStore struct {
	// sys provides the process environment.
	sys system.System
	// runner executes the utility with its output discarded.
	runner *installer.Runner
	// executable is the utility path or name.
	executable string
	// variable is the environment variable name.
	variable string
}

// NewSetxStore creates a SetxStore.
func NewSetxStore(sys system.System, runner *installer.Runner, executable, variable string) *SetxStore {
	return &SetxStore{
		sys:        sys,
		runner:     runner,
		executable: executable,
		variable:   variable,
	}
}

// Read returns the variable as seen by this process; unset reads as empty.
func (s *SetxStore) Read(_ context.Context) (string, error) {
	value, _ := s.sys.LookupEnv(s.variable)

	return value, nil
}

// Write runs "setx <variable> <value>".
func (s *SetxStore) Write(ctx context.Context, value string) error {
	return s.runner.RunSilent(ctx, s.executable, []string{s.variable, value})
}

// MemoryStore keeps the value in memory.
type MemoryStore struct {
	mu     sync.Mutex
	value  string
	writes int
}

// NewMemoryStore returns a store holding value.
func NewMemoryStore(value string) *MemoryStore {
	return &MemoryStore{value: value}
}

// Read returns the stored value.
func (s *MemoryStore) Read(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value, nil
}

// Write replaces the stored value.
func (s *MemoryStore) Write(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	s.writes++

	return nil
}

// Writes returns how many times Write was called.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writes
}
