package actions

import (
	"errors"
	"fmt"
)

var (
	ErrCancelled = fmt.Errorf("action cancelled")
)

/*
ValidationError is raised before any request is sent.
*/
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

/*
UploadError names the file that stopped a sequential upload. Index is zero based.
*/
type UploadError struct {
	Index int
	Total int
	Name  string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("error uploading %s (%d/%d): %s", e.Name, e.Index+1, e.Total, e.Err.Error())
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
