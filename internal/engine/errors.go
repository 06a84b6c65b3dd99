package engine

import (
	"errors"
	"fmt"

	"upkeep/internal/engine/health"
	"upkeep/internal/engine/schedule"
	"upkeep/internal/engine/status"
	"upkeep/internal/ports"
)

var (
	ErrInvalidRange       = schedule.ErrInvalidRange
	ErrNoActiveTier       = errors.New("at least one maintenance level must have hours/duration values > 0")
	ErrEquipmentNotFound  = errors.New("equipment not found")
	ErrPlanNotFound       = errors.New("maintenance plan not found")
	ErrEventNotFound      = errors.New("maintenance event not found")
	ErrMissingHealthIndex = health.ErrMissingHealthIndex
	ErrInvalidTransition  = status.ErrInvalidTransition
)

// ValidationError reports malformed input. Never retried.
type ValidationError struct{ Err error }

func (e ValidationError) Error() string { return e.Err.Error() }
func (e ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a missing equipment, plan or event.
type NotFoundError struct{ Err error }

func (e NotFoundError) Error() string { return e.Err.Error() }
func (e NotFoundError) Unwrap() error { return e.Err }

// ConflictError reports a lost race on a conditional write. The caller may
// retry the whole operation.
type ConflictError struct{ Err error }

func (e ConflictError) Error() string { return e.Err.Error() }
func (e ConflictError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure of the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e PersistenceError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return ValidationError{Err: fmt.Errorf(format, args...)}
}

// notFound turns a store miss into a NotFoundError carrying sentinel.
func notFound(err, sentinel error, id string) error {
	if errors.Is(err, ports.ErrNotFound) {
		return NotFoundError{Err: fmt.Errorf("%w: %s", sentinel, id)}
	}
	return err
}

// classify leaves taxonomy errors untouched and wraps anything else.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve ValidationError
		ne NotFoundError
		ce ConflictError
		pe PersistenceError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ne), errors.As(err, &ce), errors.As(err, &pe):
		return err
	case errors.Is(err, ports.ErrConflict):
		return ConflictError{Err: fmt.Errorf("%s: %w", op, err)}
	case errors.Is(err, ports.ErrNotFound):
		return NotFoundError{Err: fmt.Errorf("%s: %w", op, err)}
	default:
		return PersistenceError{Op: op, Err: err}
	}
}

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var ne NotFoundError
	return errors.As(err, &ne)
}

func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}
