package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a POSIX short error code, per §7.
type Code string

const (
	ENOENT    Code = "ENOENT"
	EEXIST    Code = "EEXIST"
	ENOTEMPTY Code = "ENOTEMPTY"
	EISDIR    Code = "EISDIR"
	ENOSPC    Code = "ENOSPC"
	ENOTDIR   Code = "ENOTDIR"
)

// Error wraps a POSIX short code with the operation and path that
// produced it, plus the underlying cause for logging. Callers should
// switch on Code, not on the error string.
type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err carries the given POSIX code, unwrapping
// through any wrapping errors.Wrap layers.
func Is(err error, code Code) bool {
	fe, ok := errors.Cause(err).(*Error)
	if !ok {
		return false
	}
	return fe.Code == code
}

// newErr builds an *Error for op/path, wrapping cause if given.
func newErr(code Code, op, path string, cause error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: cause}
}
