package envpath

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/gtk-bootstrap/internal/logger"
)

// ErrPersist wraps failures to read or write the persistent value.
var ErrPersist = errors.New("persist environment variable")

// Store reads and writes the persistent PATH value.
type Store interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, value string) error
}

// Result describes what Ensure did.
type Result int

const (
	// ResultAppended means the directory was added and persisted.
	ResultAppended Result = iota
	// ResultAlreadyPresent means nothing was written.
	ResultAlreadyPresent
)

// String returns a short description of the result.
func (r Result) String() string {
	switch r {
	case ResultAppended:
		return "appended"
	case ResultAlreadyPresent:
		return "already present"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Updater extends a PATH-like value idempotently.
type Updater struct {
	// store holds the persistent value.
	store Store
	// separator joins entries.
	separator string
}

// New creates an Updater over store using separator between entries.
func New(store Store, separator string) *Updater {
	return &Updater{
		store:     store,
		separator: separator,
	}
}

// Contains reports whether dir occurs anywhere in value.
func Contains(value, dir string) bool {
	return strings.Contains(value, dir)
}

// Append returns value with dir added as the last entry.
func Append(value, dir, separator string) string {
	switch {
	case value == "":
		return dir
	case strings.HasSuffix(value, separator):
		return value + dir
	default:
		return value + separator + dir
	}
}

// Ensure appends dir to the persistent value unless it is already contained.
func (u *Updater) Ensure(ctx context.Context, dir string) (Result, error) {
	current, err := u.store.Read(ctx)
	if err != nil {
		return ResultAppended, fmt.Errorf("%w: read: %w", ErrPersist, err)
	}

	if Contains(current, dir) {
		logger.InfoKV(ctx, "Directory already in PATH", "dir", dir)
		return ResultAlreadyPresent, nil
	}

	if err = u.store.Write(ctx, Append(current, dir, u.separator)); err != nil {
		return ResultAppended, fmt.Errorf("%w: write: %w", ErrPersist, err)
	}

	logger.InfoKV(ctx, "Directory added to PATH", "dir", dir)

	return ResultAppended, nil
}
