package imageprocessor

import (
	"errors"
	"fmt"
	"io/fs"
)

// Reason classifies why an image could not be normalized
type Reason string

const (
	ReasonUnsupported Reason = "unsupported"
	ReasonCorrupt     Reason = "corrupt"
	ReasonEmpty       Reason = "empty"
	ReasonPermission  Reason = "permission"
	ReasonNotFound    Reason = "not-found"
)

// DecodeError reports a file that was skipped by the normalizer
type DecodeError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Path, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newDecodeError(path string, reason Reason, err error) *DecodeError {
	return &DecodeError{Path: path, Reason: reason, Err: err}
}

// classifyLoadError maps an open or decode failure onto a Reason. A file
// whose extension has a loader but whose bytes do not decode is corrupt.
func classifyLoadError(path string, err error) *DecodeError {
	var de *DecodeError
	if errors.As(err, &de) {
		return de
	}
	switch {
	case errors.Is(err, fs.ErrPermission):
		return newDecodeError(path, ReasonPermission, err)
	case errors.Is(err, fs.ErrNotExist):
		return newDecodeError(path, ReasonNotFound, err)
	default:
		return newDecodeError(path, ReasonCorrupt, err)
	}
}

// IsDecodeError reports whether err is a DecodeError and returns it
func IsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ClassifyError wraps an arbitrary failure for path as a *DecodeError
func ClassifyError(path string, err error) *DecodeError {
	return classifyLoadError(path, err)
}
