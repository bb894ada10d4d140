package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	// The same error covers unknown emails so responses cannot be used to
	// probe which addresses exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned when a session token fails validation.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email is already in use, including
	// by deactivated users.
	ErrEmailTaken = errors.New("email is already in use")
	// ErrExtensionTaken is returned when the extension is already in use,
	// including by deactivated users.
	ErrExtensionTaken = errors.New("extension is already in use")
	// ErrSelfDelete is returned when an admin tries to delete their own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
	// ErrAdminExists is returned when the bootstrap endpoint is called after
	// an admin account already exists.
	ErrAdminExists = errors.New("admin account already exists")
	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrNotConfigured is returned when telephony credentials have not been saved.
	ErrNotConfigured = errors.New("telephony credentials not configured")
	// ErrSecretMasked is returned when a credentials save carries the secret
	// mask back instead of a real secret.
	ErrSecretMasked = errors.New("api secret must be provided in full")
	// ErrContactNotFound is returned when a contact is not found.
	ErrContactNotFound = errors.New("contact not found")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ValidationError carries per-field messages for a 400 response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     map[string]string
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
		Error:  e.Message,
		Code:   e.Code,
		Fields: e.Fields,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		he := NewHTTPError(http.StatusBadRequest, ve.Error(), "VALIDATION_ERROR")
		he.Fields = ve.Fields
		return he
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrExtensionTaken):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "EXTENSION_TAKEN")
	case errors.Is(err, ErrSelfDelete):
		return NewHTTPError(http.StatusForbidden, err.Error(), "SELF_DELETE")
	case errors.Is(err, ErrAdminExists):
		return NewHTTPError(http.StatusForbidden, err.Error(), "ADMIN_EXISTS")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNotConfigured):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_CONFIGURED")
	case errors.Is(err, ErrSecretMasked):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "SECRET_MASKED")
	case errors.Is(err, ErrContactNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "CONTACT_NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
