package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRequired is returned when no owner identity is available
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrSessionFinalized is returned when a finalized session is mutated
	ErrSessionFinalized = errors.New("session is finalized")
	// ErrEmptySession is returned when finalizing a session without items
	ErrEmptySession = errors.New("session has no items")
	// ErrNoActiveSession is returned when an operation needs a current session
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionNotFinalized is returned when drafts are requested for a draft session
	ErrSessionNotFinalized = errors.New("session is not finalized")
)

// Validation rules
const (
	RuleRequired    = "required"
	RuleMinQuantity = "min_quantity"
	RuleEmail       = "email"
)

// ValidationError reports the first input field that failed its rule
type ValidationError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Rule)
}

// PersistenceError wraps a failed store call. In-memory state is rolled back
// before it is returned, so the operation may be retried as a whole.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a missing resource where absence is a caller error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func persistenceErr(op string, err error) error {
	return &PersistenceError{Operation: op, Err: err}
}

// IsValidationError reports whether err is a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsPersistenceError reports whether err is a *PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
