package matching

import (
	"errors"
	"fmt"
)

var (
	// ErrSelfTarget rejects a decision whose actor and target are the same user.
	ErrSelfTarget = errors.New("cannot decide on yourself")
	// ErrInvalidKind rejects anything other than like, super_like or skip.
	ErrInvalidKind = errors.New("unknown decision kind")
	// ErrMissingUser rejects an empty actor or target id.
	ErrMissingUser = errors.New("actor and target are required")
)

// PersistenceError reports a failed backend call. Local state was not
// changed, so the operation can be retried as-is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
