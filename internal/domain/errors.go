package domain

import (
	"errors"
	"strings"
)

var (
	// ErrTableNotFound is returned by a store when the named table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrRowOutOfRange is returned for row or column positions outside a table.
	ErrRowOutOfRange = errors.New("row out of range")

	// ErrNothingToMerge is returned when there are no START or no STOP rows to pair.
	ErrNothingToMerge = errors.New("nothing to merge: START or STOP entries are missing")

	// ErrRecordNotFound is returned when a referenced record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	ErrDuplicateUser      = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("operation not permitted")
)

// Problem describes one invalid field.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in a submission.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Problems = append(e.Problems, Problem{Field: field, Message: msg})
}

// orNil returns e when it holds problems.
func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
