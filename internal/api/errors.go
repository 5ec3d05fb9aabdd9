//
//
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// API-layer error conditions
var (
	ErrMissingEquipmentID = errors.New("equipment id is required")
	ErrUnknownEquipment   = errors.New("equipment not found")
	ErrInvalidLimit       = errors.New("limit must be a positive integer")
	ErrHistoryDisabled    = errors.New("history recording is disabled")
)

// APIError carries an explicit status and envelope message.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

// NewAPIError creates a new API error.
func NewAPIError(statusCode int, message string, err error) *APIError {
	return &APIError{StatusCode: statusCode, Message: message, Err: err}
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ToAPIError converts an error to an HTTP status code and envelope message.
func ToAPIError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, MessageSuccess
	}

	// Check if it's already an API error
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Message
	}

	switch {
	case errors.Is(err, ErrMissingEquipmentID):
		return http.StatusBadRequest, MessageMissingID
	case errors.Is(err, ErrInvalidLimit):
		return http.StatusBadRequest, MessageInvalidLimit
	case errors.Is(err, ErrUnknownEquipment):
		return http.StatusNotFound, MessageUnknownID
	case errors.Is(err, ErrHistoryDisabled):
		return http.StatusServiceUnavailable, MessageHistoryOff
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, MessageUnavailable
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError, MessageInternal
}
