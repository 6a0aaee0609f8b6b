package authcore

import (
	"errors"
	"net/http"
)

// Errors returned by the Authenticator and the stores. Callers match them with errors.Is.
var (
	ErrInvalidInput       = errors.New("required field missing")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidOrExpired   = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("unauthorized")

	// ErrNotFound is returned by stores when no session or one-time entry matches.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a one-time entry matched but is past its expiry.
	ErrExpired = errors.New("expired")
)

// Stable error codes written to clients.
const (
	ErrCodeEmailAndPasswordRequired = "email_and_password_required"
	ErrCodeEmailExists              = "email_exists"
	ErrCodeInvalidCredentials       = "invalid_credentials"
	ErrCodeUserNotFound             = "user_not_found"
	ErrCodeInvalidOrExpiredOTP      = "invalid_or_expired_otp"
	ErrCodeTokenRequired            = "token_required"
	ErrCodeInvalidOrExpiredToken    = "invalid_or_expired_token"
	ErrCodeTokenAndPasswordRequired = "token_and_password_required"
	ErrCodeUnauthorized             = "unauthorized"
	ErrCodeInternal                 = "internal_error"
)

// Operation names a facade entry point for error mapping.
type Operation string

const (
	OpSignup           Operation = "signup"
	OpLogin            Operation = "login"
	OpRequestOTP       Operation = "request-otp"
	OpLoginOTP         Operation = "login-otp"
	OpRequestMagicLink Operation = "request-magic-link"
	OpMagicLogin       Operation = "magic-login"
	OpRequestReset     Operation = "request-reset"
	OpReset            Operation = "reset"
	OpMe               Operation = "me"
)

// AuthError is an error with a stable code and the HTTP status it maps to.
type AuthError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func NewAuthError(code, message string, status int) *AuthError {
	return &AuthError{Code: code, Message: message, Status: status}
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrorFor maps an error returned by the Authenticator for op to its wire code.
// Errors that are not part of the expected taxonomy map to internal_error.
func ErrorFor(op Operation, err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	wrap := func(code string, status int) *AuthError {
		return &AuthError{Code: code, Message: err.Error(), Status: status, Err: err}
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		switch op {
		case OpReset:
			return wrap(ErrCodeTokenAndPasswordRequired, http.StatusBadRequest)
		case OpMagicLogin:
			return wrap(ErrCodeTokenRequired, http.StatusBadRequest)
		}
		return wrap(ErrCodeEmailAndPasswordRequired, http.StatusBadRequest)
	case errors.Is(err, ErrEmailExists):
		return wrap(ErrCodeEmailExists, http.StatusConflict)
	case errors.Is(err, ErrInvalidCredentials):
		return wrap(ErrCodeInvalidCredentials, http.StatusUnauthorized)
	case errors.Is(err, ErrUserNotFound):
		return wrap(ErrCodeUserNotFound, http.StatusNotFound)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired), errors.Is(err, ErrInvalidOrExpired):
		if op == OpLoginOTP {
			return wrap(ErrCodeInvalidOrExpiredOTP, http.StatusUnauthorized)
		}
		return wrap(ErrCodeInvalidOrExpiredToken, http.StatusBadRequest)
	case errors.Is(err, ErrUnauthorized):
		return wrap(ErrCodeUnauthorized, http.StatusUnauthorized)
	}
	return wrap(ErrCodeInternal, http.StatusInternalServerError)
}
