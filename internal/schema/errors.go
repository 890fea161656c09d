package schema

import (
	"errors"

	"socialgraph/internal/store"
)

// Machine-readable error codes surfaced in the errors' extensions.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeInternal            = "INTERNAL"
)

// fieldError carries a store failure across the executor boundary. graphql-go
// formats it with the failing node's result path and picks up Extensions.
type fieldError struct {
	err  error
	code string
}

func (e *fieldError) Error() string {
	return e.err.Error()
}

func (e *fieldError) Unwrap() error {
	return e.err
}

func (e *fieldError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

// wrapStoreError classifies a store error for the response envelope. The
// error stays local to the failing node; it never aborts sibling fields.
func wrapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &fieldError{err: err, code: CodeNotFound}
	case errors.Is(err, store.ErrConstraint):
		return &fieldError{err: err, code: CodeConstraintViolation}
	default:
		return &fieldError{err: err, code: CodeInternal}
	}
}
