package apperror

import (
	"errors"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "Resource not found"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrConflict       = &AppError{Code: http.StatusConflict, Message: "Resource already exists"}
	ErrUnprocessable  = &AppError{Code: http.StatusUnprocessableEntity, Message: "Unprocessable entity"}

	// Checkout flow errors
	ErrNoActiveCheckout   = &AppError{Code: http.StatusNotFound, Message: "No active checkout for this operator"}
	ErrSessionBusy        = &AppError{Code: http.StatusConflict, Message: "An asynchronous payment is already in progress"}
	ErrDeviceRequired     = &AppError{Code: http.StatusBadRequest, Message: "A card terminal must be selected"}
	ErrFullPaymentNeeded  = &AppError{Code: http.StatusUnprocessableEntity, Message: "Direct sales require full payment before settlement"}
	ErrDepositBelowMin    = &AppError{Code: http.StatusForbidden, Message: "Payments below the minimum deposit require supervisor authorization"}
	ErrInvalidPIN         = &AppError{Code: http.StatusUnauthorized, Message: "Invalid supervisor PIN"}
	ErrInvalidOverride    = &AppError{Code: http.StatusUnauthorized, Message: "Invalid or expired supervisor authorization"}
	ErrBackendUnavailable = &AppError{Code: http.StatusBadGateway, Message: "Retail backend request failed"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: resource + " not found",
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

// NewBackendError creates an error for a failed retail-backend call. The
// backend's own message is preserved when it sent one.
func NewBackendError(message string) *AppError {
	if message == "" {
		return ErrBackendUnavailable
	}
	return &AppError{
		Code:    http.StatusBadGateway,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}
