// Package errorutil defines the application error family that crosses the
// service boundary and its transport mapping.
package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Stable error codes.
const (
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeStaffAccountNotFound = "STAFF_ACCOUNT_NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeUsernameTaken        = "USERNAME_TAKEN"
	CodeStaleVersion         = "STALE_VERSION"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodePasswordReused       = "PASSWORD_REUSED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	CodeAccountUnavailable   = "ACCOUNT_UNAVAILABLE"
	CodeForbidden            = "FORBIDDEN"
	CodeInternalError        = "INTERNAL_ERROR"
)

type codeInfo struct {
	number int
	status int
}

var codes = map[string]codeInfo{
	CodeValidationFailed:     {1000, http.StatusBadRequest},
	CodeNotFound:             {2000, http.StatusNotFound},
	CodeStaffAccountNotFound: {2001, http.StatusNotFound},
	CodeConflict:             {3000, http.StatusConflict},
	CodeUsernameTaken:        {3001, http.StatusConflict},
	CodeStaleVersion:         {3002, http.StatusConflict},
	CodeInvalidTransition:    {3003, http.StatusConflict},
	CodePasswordReused:       {3004, http.StatusConflict},
	CodeUnauthorized:         {4000, http.StatusUnauthorized},
	CodeInvalidCredentials:   {4001, http.StatusUnauthorized},
	CodeInvalidRefreshToken:  {4002, http.StatusUnauthorized},
	CodeAccountUnavailable:   {4003, http.StatusUnauthorized},
	CodeForbidden:            {4030, http.StatusForbidden},
	CodeInternalError:        {5000, http.StatusInternalServerError},
}

// AppError standardizes application errors. Err keeps the internal cause for
// logs and is never rendered.
type AppError struct {
	Code       string
	Number     int
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// IsSecurity reports whether the error belongs to the 4xxx security range.
func (e *AppError) IsSecurity() bool {
	return e.Number >= 4000 && e.Number < 5000
}

// New constructs an AppError for a known code. Unknown codes are treated as
// internal errors.
func New(code, message string, details map[string]any) *AppError {
	info, ok := codes[code]
	if !ok {
		code, info = CodeInternalError, codes[CodeInternalError]
	}
	return &AppError{Code: code, Number: info.number, Message: message, HTTPStatus: info.status, Details: details}
}

// Wrap is New with an internal cause.
func Wrap(code, message string, err error) *AppError {
	e := New(code, message, nil)
	e.Err = err
	return e
}

func NewValidationError(message string, details map[string]any) *AppError {
	return New(CodeValidationFailed, message, details)
}

func NewNotFound(resource string, details map[string]any) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), details)
}

func NewStaffAccountNotFound() *AppError {
	return New(CodeStaffAccountNotFound, "staff account not found", nil)
}

func NewConflict(code, message string) *AppError {
	return New(code, message, nil)
}

func NewUnauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, nil)
}

func NewInvalidCredentials(cause error) *AppError {
	return Wrap(CodeInvalidCredentials, "invalid username or password", cause)
}

func NewInvalidRefreshToken(cause error) *AppError {
	return Wrap(CodeInvalidRefreshToken, "invalid refresh token", cause)
}

// NewAccountUnavailable covers locked and disabled accounts without saying which.
func NewAccountUnavailable(cause error) *AppError {
	return Wrap(CodeAccountUnavailable, "account unavailable", cause)
}

func NewForbidden(message string) *AppError {
	return New(CodeForbidden, message, nil)
}

func NewInternalError(err error) *AppError {
	return Wrap(CodeInternalError, "internal server error", err)
}

// ToAppError converts any error to an AppError.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromStatus(fiberErr.Code, fiberErr.Message)
	}
	return NewInternalError(err)
}

func fromStatus(status int, message string) *AppError {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return NewValidationError(message, nil)
	case http.StatusNotFound:
		return New(CodeNotFound, message, nil)
	case http.StatusConflict:
		return New(CodeConflict, message, nil)
	case http.StatusUnauthorized:
		return NewUnauthorized(message)
	case http.StatusForbidden:
		return NewForbidden(message)
	default:
		e := NewInternalError(nil)
		if status >= 400 && status < 500 {
			e.HTTPStatus = status
			e.Message = message
		}
		return e
	}
}
