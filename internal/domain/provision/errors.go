package provision

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks request or transport failures, including non-2xx replies.
	ErrNetwork = errors.New("network error")
	// ErrResponseParse marks release metadata that is not in the expected shape.
	ErrResponseParse = errors.New("unexpected release metadata")
	// ErrNoMatchingAsset is returned when no release asset satisfies the filter.
	ErrNoMatchingAsset = errors.New("no suitable installer found")
	// ErrFileIO marks create, write, read or delete failures on local paths.
	ErrFileIO = errors.New("file i/o error")
	// ErrProcessLaunch is returned when an executable is missing or cannot be spawned.
	ErrProcessLaunch = errors.New("process launch failed")
	// ErrReadinessTimeout is returned when the toolchain never became ready.
	// It is terminal: the process exits instead of continuing.
	ErrReadinessTimeout = errors.New("toolchain did not become ready")
)

// ProcessExitError is returned when a child exits with a failure status.
type ProcessExitError struct {
	// Path is the executable that was run.
	Path string
	// ExitCode is the status reported by the child.
	ExitCode int
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("%s failed with exit code: %d", e.Path, e.ExitCode)
}

// StepError names the pipeline step that failed.
type StepError struct {
	// Step is the failed step name.
	Step string
	// Err is the underlying failure.
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the name of the step that produced err, if any.
func FailedStep(err error) (string, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}

	return "", false
}

// IsFatal reports whether err must terminate the process.
func IsFatal(err error) bool {
	return errors.Is(err, ErrReadinessTimeout)
}
