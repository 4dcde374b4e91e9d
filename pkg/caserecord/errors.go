package caserecord

import (
	"errors"
)

// NotExistError indicates that the requested case record does not
// exist, either because the case never ran or because the output
// directory was cleaned.
type NotExistError struct {
	err error
}

func (e *NotExistError) Error() string {
	return e.err.Error()
}

func (e *NotExistError) Unwrap() error {
	return e.err
}

func WrapNotExistError(err error) error {
	return &NotExistError{err}
}

func IsNotExistError(err error) bool {
	var notExistErr *NotExistError
	return errors.As(err, &notExistErr)
}
