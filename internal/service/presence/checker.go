package presence

import (
	"path/filepath"
	"strings"

	"github.com/oshokin/gtk-bootstrap/internal/config"
	"github.com/oshokin/gtk-bootstrap/internal/system"
)

// Checker probes the filesystem through a system.System.
type Checker struct {
	sys system.System
}

// New creates a Checker.
func New(sys system.System) *Checker {
	return &Checker{sys: sys}
}

// Exists reports whether path exists. Errors of any kind count as absence.
func (c *Checker) Exists(path string) bool {
	if path == "" {
		return false
	}

	_, err := c.sys.Stat(path)

	return err == nil
}

// SystemDirectory resolves the system library directory: the OS root from
// the environment (or the fallback when unset or blank) joined with the
// library subdirectory.
func (c *Checker) SystemDirectory(cfg *config.RuntimeConfig) string {
	root, ok := c.sys.LookupEnv(cfg.SystemRootEnv)
	if !ok || strings.TrimSpace(root) == "" {
		root = cfg.FallbackSystemRoot
	}

	return filepath.Join(root, cfg.LibrarySubdir)
}

// RuntimePresent reports whether any of the runtime libraries exists.
func (c *Checker) RuntimePresent(cfg *config.RuntimeConfig) bool {
	dir := c.SystemDirectory(cfg)

	for _, library := range cfg.Libraries {
		if c.Exists(filepath.Join(dir, library)) {
			return true
		}
	}

	return false
}

// ToolchainPresent reports whether the root exists and holds the interpreter.
func (c *Checker) ToolchainPresent(cfg *config.Config) bool {
	return c.Exists(cfg.Toolchain.Root) && c.Exists(cfg.ShellExecutable())
}
