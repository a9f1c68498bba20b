package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidCredentials is returned when username or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken is returned when a token is missing, malformed, expired or revoked.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCapsuleNotFound is returned when a referenced capsule does not exist.
	ErrCapsuleNotFound = errors.New("capsule not found")
	// ErrNotOwner is returned when the caller is not the capsule's owner.
	ErrNotOwner = errors.New("capsule belongs to another user")
	// ErrInvalidUnlockCode is returned when the supplied unlock code does not match.
	ErrInvalidUnlockCode = errors.New("invalid unlock code")
	// ErrCapsuleLocked is returned when reading a capsule before its unlock moment.
	ErrCapsuleLocked = errors.New("capsule is still locked")
	// ErrCapsuleUnlocked is returned when mutating a capsule past its unlock moment.
	ErrCapsuleUnlocked = errors.New("capsule is already unlocked")
	// ErrCapsuleExpired is returned when a capsule has passed its retention window.
	ErrCapsuleExpired = errors.New("capsule has expired and is no longer accessible")
	// ErrUnlockAtNotFuture is returned when unlock_at is not strictly in the future.
	ErrUnlockAtNotFuture = errors.New("unlock_at must be in the future")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrPasswordMismatch):
		return NewHTTPError(http.StatusConflict, err.Error(), "PASSWORD_MISMATCH")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrCapsuleNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "CAPSULE_NOT_FOUND")
	case errors.Is(err, ErrNotOwner):
		return NewHTTPError(http.StatusForbidden, err.Error(), "NOT_OWNER")
	case errors.Is(err, ErrInvalidUnlockCode):
		return NewHTTPError(http.StatusForbidden, err.Error(), "INVALID_UNLOCK_CODE")
	case errors.Is(err, ErrCapsuleLocked):
		return NewHTTPError(http.StatusForbidden, err.Error(), "CAPSULE_LOCKED")
	case errors.Is(err, ErrCapsuleUnlocked):
		return NewHTTPError(http.StatusForbidden, err.Error(), "CAPSULE_UNLOCKED")
	case errors.Is(err, ErrCapsuleExpired):
		return NewHTTPError(http.StatusGone, err.Error(), "CAPSULE_EXPIRED")
	case errors.Is(err, ErrUnlockAtNotFuture):
		return NewHTTPError(http.StatusUnprocessableEntity, err.Error(), "UNLOCK_AT_NOT_FUTURE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
