//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another bootstrap run holds the lock.
var ErrAlreadyRunning = errors.New("another bootstrap run is in progress")

// ProcessFinder looks a process up by pid; a nil process means it is gone.
type ProcessFinder func(pid int) (ps.Process, error)

// InstanceLock marks the current process as the one running the pipeline.
// Only pipeline runs take it, so status or version invocations never block one.
type InstanceLock struct {
	// path is the lock file holding the owner's pid.
	path string
}

// AcquireInstanceLock takes the lock at path. A lock left by a process that
// is no longer alive, or whose pid now belongs to another program, is stale
// and gets replaced.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return acquireInstanceLock(path, ps.FindProcess, filepath.Base(executable), os.Getpid())
}

// Release removes the lock file.
func (l *InstanceLock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock: %w", err)
	}

	return nil
}

func acquireInstanceLock(path string, find ProcessFinder, executableName string, selfPID int) (*InstanceLock, error) {
	path = filepath.Clean(path)

	// One retry after clearing a stale lock; losing that race means someone else won.
	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, err = file.WriteString(strconv.Itoa(selfPID))
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}

			if err != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write lock: %w", err)
			}

			return &InstanceLock{path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock: %w", err)
		}

		ownerPID, alive, err := lockOwner(path, find, executableName)
		if err != nil {
			return nil, err
		}

		if alive && ownerPID != selfPID {
			return nil, fmt.Errorf("%w (pid %d, lock %s)", ErrAlreadyRunning, ownerPID, path)
		}

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}

	return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
}

// lockOwner reads the pid in the lock and reports whether it still runs
// an executable named like this one. Unreadable contents count as stale.
func lockOwner(path string, find ProcessFinder, executableName string) (int, bool, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("read lock: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return 0, false, nil
	}

	process, err := find(pid)
	if err != nil {
		return 0, false, fmt.Errorf("find process %d: %w", pid, err)
	}

	// Executable names are case-insensitive on Windows.
	alive := process != nil && strings.EqualFold(process.Executable(), executableName)

	return pid, alive, nil
}
