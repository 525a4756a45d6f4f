package usecase

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

// ErrConflict reports a request that is well formed but not allowed in the
// entity's current state, such as paying an already-paid order.
type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

type ErrDuplicate string

func (e ErrDuplicate) Error() string { return string(e) + " already exists" }

// UpstreamError wraps a failed payment provider call. Op is safe to show to
// clients; Err is for logs.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

func newID() string {
	return uuid.NewString()
}
