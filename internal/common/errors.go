package common

import "errors"

// AppError carries a machine-readable code and the HTTP status the handler
// layer should respond with. Services return it when the failure is part of
// the API contract rather than an internal fault.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// AsAppError unwraps err into an AppError when one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsAppError reports whether an AppError is anywhere in the chain.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}
