package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the surveillance core. Store implementations wrap the
// underlying driver error with one of these so HTTP handlers can map the
// failure to a status code without inspecting driver internals.
var (
	ErrAggregationFailed  = errors.New("statistics aggregation failed")
	ErrForecastStore      = errors.New("forecast store operation failed")
	ErrInvalidDiseaseType = errors.New("invalid disease type")
	ErrNoForecastData     = errors.New("no forecast data")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Error codes surfaced in JSON error bodies.
const (
	CodeAggregationFailed   = "AGGREGATION_FAILED"
	CodeForecastStoreFailed = "FORECAST_STORE_FAILED"
	CodeInvalidDiseaseType  = "INVALID_DISEASE_TYPE"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternalServer      = "INTERNAL_SERVER_ERROR"
)

// APIError is the structured error body returned by the HTTP boundary.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates an APIError stamped with the current time.
func NewAPIError(code, message, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ErrorCode maps a domain error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAggregationFailed):
		return CodeAggregationFailed
	case errors.Is(err, ErrForecastStore):
		return CodeForecastStoreFailed
	case errors.Is(err, ErrInvalidDiseaseType):
		return CodeInvalidDiseaseType
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternalServer
	}
}
