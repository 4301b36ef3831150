package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// DefaultFileMode is the mode of downloaded installers.
const DefaultFileMode os.FileMode = 0o755

// Command describes a child process.
type Command struct {
	// Path is the executable.
	Path string
	// Args excludes the executable itself.
	Args []string
	// Stdout receives the child's standard output; nil discards it.
	Stdout io.Writer
	// Stderr receives the child's standard error; nil discards it.
	Stderr io.Writer
}

// System abstracts OS operations needed by the bootstrap steps.
type System interface {
	Stat(name string) (os.FileInfo, error)
	LookupEnv(key string) (string, bool)
	Getwd() (string, error)
	TempDir() string
	WriteFile(name string, data []byte) error
	Remove(name string) error
	// Run starts the command and waits for it. A non-nil error means the
	// process could not be started; otherwise exitCode is its status.
	Run(ctx context.Context, cmd *Command) (exitCode int, err error)
}

// RealSystem implements System using the OS.
type RealSystem struct{}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// LookupEnv returns the value and presence of an environment variable.
func (RealSystem) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Getwd returns the current working directory.
func (RealSystem) Getwd() (string, error) {
	return os.Getwd()
}

// TempDir returns the default directory for temporary files.
func (RealSystem) TempDir() string {
	return os.TempDir()
}

// WriteFile replaces name with data. The new contents are staged next to the
// target and swapped in by go-update. When the target did not exist before,
// a failed write leaves nothing behind.
func (RealSystem) WriteFile(name string, data []byte) error {
	name = filepath.Clean(name)

	// go-update only replaces existing files.
	created := false

	if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.Create(name)
		if createErr != nil {
			return createErr
		}

		created = true

		if createErr = placeholder.Close(); createErr != nil {
			_ = os.Remove(name)
			return createErr
		}
	} else if err != nil {
		return err
	}

	options := goupdate.Options{
		TargetPath: name,
		TargetMode: DefaultFileMode,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if created {
			_ = os.Remove(name)
		}

		return fmt.Errorf("apply %s: %w", name, err)
	}

	return nil
}

// Remove removes the named file.
func (RealSystem) Remove(name string) error {
	return os.Remove(name)
}

// Run starts the command with stdin closed and waits for it to exit.
func (RealSystem) Run(ctx context.Context, cmd *Command) (int, error) {
	//nolint:gosec // Executables come from the recipe configuration.
	child := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	child.Stdin = nil
	child.Stdout = cmd.Stdout
	child.Stderr = cmd.Stderr

	if err := child.Start(); err != nil {
		return -1, err
	}

	err := child.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, err
}
