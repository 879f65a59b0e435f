// Package apperr holds the validation error shared by the domain packages.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError names the offending field so the HTTP layer can report it verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func Missing(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
