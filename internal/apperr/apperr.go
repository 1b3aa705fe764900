package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for HTTP mapping.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeDependency Code = "DEPENDENCY_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidation: http.StatusBadRequest,
	CodeNotFound:   http.StatusNotFound,
	CodeDependency: http.StatusInternalServerError,
	CodeInternal:   http.StatusInternalServerError,
}

// Error is a coded error with an optional cause.
type Error struct {
	code    Code
	message string
	cause   error
}

// New creates an error without a cause.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to err.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Validation is shorthand for a client input error.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts the first *Error in err's chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// HTTPStatus maps any error to a response status; untyped errors are 500.
func HTTPStatus(err error) int {
	typed := As(err)
	if typed == nil {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[typed.code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message shown to callers. Validation messages are shown as
// written and dependency failures surface the upstream error text unchanged.
func PublicMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	if typed := As(err); typed != nil {
		switch {
		case typed.code == CodeValidation || typed.cause == nil:
			return typed.message
		case typed.code == CodeDependency:
			return typed.cause.Error()
		}
	}
	return err.Error()
}
