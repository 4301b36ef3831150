// Package systemtest provides an in-memory system.System for tests.
package systemtest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/gtk-bootstrap/internal/system"
)

// ErrNoRunner is returned by Run when the fake has no RunFunc.
var ErrNoRunner = errors.New("systemtest: Run not configured")

// Fake is an in-memory filesystem, environment and process table.
// The zero value is not usable; call New.
type Fake struct {
	// RunFunc handles Run calls. It may mutate the fake (for example to make
	// an installer "create" files).
	RunFunc func(ctx context.Context, cmd *system.Command) (int, error)
	// WriteErr, when set, is returned by every WriteFile call.
	WriteErr error
	// RemoveErr, when set, is returned by every Remove call.
	RemoveErr error

	mu       sync.Mutex
	files    map[string][]byte
	env      map[string]string
	cwd      string
	tempDir  string
	commands []system.Command
}

// New returns an empty fake rooted at cwd with the given temporary directory.
func New(cwd, tempDir string) *Fake {
	return &Fake{
		files:   make(map[string][]byte),
		env:     make(map[string]string),
		cwd:     cwd,
		tempDir: tempDir,
	}
}

// AddFile registers a file; its parent directories then stat as directories.
func (f *Fake) AddFile(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files[filepath.Clean(name)] = append([]byte(nil), data...)
}

// SetEnv sets an environment variable.
func (f *Fake) SetEnv(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.env[key] = value
}

// File returns the contents of name and whether it exists.
func (f *Fake) File(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[filepath.Clean(name)]

	return data, ok
}

// Commands returns a copy of every command passed to Run, in order.
func (f *Fake) Commands() []system.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]system.Command(nil), f.commands...)
}

// Stat reports a file, or a directory when any registered file lives below name.
func (f *Fake) Stat(name string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name = filepath.Clean(name)

	if data, ok := f.files[name]; ok {
		return fileInfo{name: filepath.Base(name), size: int64(len(data))}, nil
	}

	for path := range f.files {
		if isBelow(name, path) {
			return fileInfo{name: filepath.Base(name), dir: true}, nil
		}
	}

	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// LookupEnv returns the value and presence of an environment variable.
func (f *Fake) LookupEnv(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.env[key]

	return value, ok
}

// Getwd returns the configured working directory.
func (f *Fake) Getwd() (string, error) {
	return f.cwd, nil
}

// TempDir returns the configured temporary directory.
func (f *Fake) TempDir() string {
	return f.tempDir
}

// WriteFile stores data under name.
func (f *Fake) WriteFile(name string, data []byte) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}

	f.AddFile(name, data)

	return nil
}

// Remove deletes name.
func (f *Fake) Remove(name string) error {
	if f.RemoveErr != nil {
		return f.RemoveErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	name = filepath.Clean(name)
	if _, ok := f.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}

	delete(f.files, name)

	return nil
}

// Run records the command and delegates to RunFunc.
func (f *Fake) Run(ctx context.Context, cmd *system.Command) (int, error) {
	f.mu.Lock()
	f.commands = append(f.commands, system.Command{
		Path:   cmd.Path,
		Args:   append([]string(nil), cmd.Args...),
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
	})
	run := f.RunFunc
	f.mu.Unlock()

	if run == nil {
		return -1, ErrNoRunner
	}

	return run(ctx, cmd)
}

// isBelow reports whether path is strictly inside dir.
func isBelow(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}

	return rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

type fileInfo struct {
	name string
	size int64
	dir  bool
}

func (i fileInfo) Name() string { return i.name }
func (i fileInfo) Size() int64 { return i.size }
func (i fileInfo) IsDir() bool { return i.dir }
func (i fileInfo) Sys() any { return nil }

func (i fileInfo) ModTime() time.Time { return time.Time{} }

func (i fileInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}

	return 0o644
}
