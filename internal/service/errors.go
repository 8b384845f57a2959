package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// Error taxonomy shared by every service.  Handlers map these with
// errors.Is; the store sentinels are re-exported so callers need not
// import the repository package.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = repository.ErrNotFound
	ErrInsufficientStock = repository.ErrInsufficientStock
	ErrConflict          = repository.ErrConflict
	ErrDuplicate         = repository.ErrDuplicate
)

// ValidationError reports a rejected input field.  It matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// StoreError wraps a failed adapter call with the operation that issued it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// storeErr passes classified errors through unchanged and wraps the rest.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrUnauthorized, ErrValidation, ErrNotFound, ErrInsufficientStock, ErrConflict, ErrDuplicate} {
		if errors.Is(err, known) {
			return err
		}
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
