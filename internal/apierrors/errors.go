package apierrors

import (
	"fmt"
	"net/http"
)

// APIError is an error with a stable machine code and an HTTP status. Handler
// code returns these to the client as-is; anything else is collapsed into an
// internal error so provider and database detail never leaks. The cause, when
// present, travels with the error for logging and never reaches the client.
type APIError struct {
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes the cause so errors.Is/As see through the API wrapper.
func (e *APIError) Unwrap() error {
	return e.cause
}

// NewErrMissingAuthorizationToken indicates the caller supplied no token.
func NewErrMissingAuthorizationToken() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "missing_token",
		Message: "authorization token is required",
	}
}

// NewErrInvalidAuthorizationToken indicates the supplied token failed validation.
func NewErrInvalidAuthorizationToken() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "invalid_token",
		Message: "authorization token is invalid",
	}
}

// NewErrForbidden indicates the caller is authenticated but lacks permission.
func NewErrForbidden() *APIError {
	return &APIError{
		Status:  http.StatusForbidden,
		Code:    "forbidden",
		Message: "you do not have permission to access this account",
	}
}

// NewErrNotFound indicates an absent record, or one scoped out by ownership.
func NewErrNotFound(resource string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "not_found",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewErrValidation indicates malformed input.
func NewErrValidation(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "validation_failed",
		Message: message,
	}
}

// NewErrEmailIsTaken indicates a registration conflict.
func NewErrEmailIsTaken(email string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "email_taken",
		Message: fmt.Sprintf("email %s is already taken", email),
	}
}

// NewErrInvalidCredentials indicates a failed login attempt.
func NewErrInvalidCredentials() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "invalid_credentials",
		Message: "email or password is incorrect",
	}
}

// NewErrUserNotRegistered indicates a share target that has no account.
func NewErrUserNotRegistered(email string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "user_not_registered",
		Message: fmt.Sprintf("%s must be a registered user before the account can be shared", email),
	}
}

// NewErrSelfShare indicates an owner tried to add themselves as a viewer.
func NewErrSelfShare() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "self_share",
		Message: "an account cannot be shared with its owner",
	}
}

// NewErrNeedsReconnect indicates stored credentials are unusable; the user
// must reconnect the account.
func NewErrNeedsReconnect() *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "needs_reconnect",
		Message: "the connected account needs to be reconnected",
	}
}

// NewErrUpstreamAuth indicates the provider rejected our credentials.
func NewErrUpstreamAuth() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "upstream_auth",
		Message: "the mail provider rejected the account credentials",
	}
}

// NewErrUpstreamRateLimit indicates the provider throttled us.
func NewErrUpstreamRateLimit() *APIError {
	return &APIError{
		Status:  http.StatusTooManyRequests,
		Code:    "upstream_rate_limit",
		Message: "the mail provider rate limit was exceeded, try again later",
	}
}

// NewErrUpstreamUnavailable indicates a provider-side failure.
func NewErrUpstreamUnavailable() *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    "upstream_unavailable",
		Message: "the mail provider is unavailable",
	}
}

// NewErrInternalServerError wraps any unexpected error. The cause is kept for
// logging but never serialized.
func NewErrInternalServerError(err error) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "internal",
		Message: "internal server error",
		cause:   err,
	}
}
