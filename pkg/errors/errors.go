package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Event field-format errors. Each carries the fixed constraint message
	// reported when event construction rejects that field.
	ErrBlankDescription  = New("INVALID_DESCRIPTION", http.StatusBadRequest, "event descriptions must not be blank")
	ErrInvalidDate       = New("INVALID_DATE", http.StatusBadRequest, "event dates must be valid calendar dates in YYYY-MM-DD form")
	ErrInvalidTime       = New("INVALID_TIME", http.StatusBadRequest, "event times must use the 24-hour HH:MM or HH:MM:SS form")
	ErrInvalidDuration   = New("INVALID_DURATION", http.StatusBadRequest, "event durations must be non-negative ISO-8601 tokens such as PT1H30M")
	ErrInvalidRecurrence = New("INVALID_RECURRENCE", http.StatusBadRequest, "recurrence must be one of NONE, DAILY, WEEKLY, BIWEEKLY or MONTHLY")

	// ErrDuplicateEvent is raised when an added event matches an existing
	// one on all five fields.
	ErrDuplicateEvent = New("DUPLICATE_EVENT", http.StatusConflict, "this event already exists in the schedule")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
