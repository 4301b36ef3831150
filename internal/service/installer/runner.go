package installer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/logger"
	"github.com/oshokin/gtk-bootstrap/internal/system"
)

// Runner launches child processes through a system.System.
type Runner struct {
	// sys starts the processes.
	sys system.System
	// stdout receives streamed output of interactive and shell invocations.
	stdout io.Writer
	// stderr receives streamed errors of interactive and shell invocations.
	stderr io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where streamed child output goes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New creates a Runner streaming to the process console.
func New(sys system.System, opts ...Option) *Runner {
	r := &Runner{
		sys:    sys,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RunSilent runs an unattended installer with its output discarded.
// A non-zero exit is reported as *provision.ProcessExitError.
func (r *Runner) RunSilent(ctx context.Context, path string, args []string) error {
	logger.DebugKV(ctx, "Running silent installer", "path", path, "args", args)

	return r.run(ctx, &system.Command{
		Path: path,
		Args: args,
	})
}

// Launch runs an installer that hands the real work to a background process.
// Success only means the installer accepted the job; callers must wait for
// readiness separately.
func (r *Runner) Launch(ctx context.Context, path string, args []string) error {
	logger.DebugKV(ctx, "Launching installer", "path", path, "args", args)

	return r.run(ctx, &system.Command{
		Path:   path,
		Args:   args,
		Stdout: r.stdout,
		Stderr: r.stderr,
	})
}

// Shell runs command through the interpreter at shellPath, streaming its
// output. It fails without spawning anything when the interpreter is missing.
func (r *Runner) Shell(ctx context.Context, shellPath string, shellArgs []string, command string) error {
	if _, err := r.sys.Stat(shellPath); err != nil {
		return fmt.Errorf("%w: interpreter not found at %s", provision.ErrProcessLaunch, shellPath)
	}

	args := make([]string, 0, len(shellArgs)+1)
	args = append(args, shellArgs...)
	args = append(args, command)

	logger.DebugKV(ctx, "Running shell command", "shell", shellPath, "command", command)

	return r.run(ctx, &system.Command{
		Path:   shellPath,
		Args:   args,
		Stdout: r.stdout,
		Stderr: r.stderr,
	})
}

func (r *Runner) run(ctx context.Context, cmd *system.Command) error {
	exitCode, err := r.sys.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", provision.ErrProcessLaunch, cmd.Path, err)
	}

	if exitCode != 0 {
		return &provision.ProcessExitError{
			Path:     cmd.Path,
			ExitCode: exitCode,
		}
	}

	return nil
}
