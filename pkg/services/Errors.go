package services

import (
	"errors"
	"fmt"
)

/*
ApiError is returned when the backend answers with a non-2xx status.
*/
type ApiError struct {
	Status  int
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

/*
NetworkError is returned when a request never completed.
*/
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("error calling %s: %s", e.Op, e.Err.Error())
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsApiError(err error) bool {
	var apiErr *ApiError
	return errors.As(err, &apiErr)
}

func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
