package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrRiskReject       ErrorType = "RISK_REJECT"
	ErrAuthFailed       ErrorType = "AUTH_FAILED"
	ErrForbidden        ErrorType = "FORBIDDEN"
	ErrTransitionDenied ErrorType = "TRANSITION_DENIED"
	ErrCoolingPeriod    ErrorType = "COOLING_PERIOD"
	ErrConflict         ErrorType = "CONFLICT"
	ErrReadOnly         ErrorType = "READ_ONLY"
	ErrInvalidRequest   ErrorType = "INVALID_REQUEST"
	ErrInternal         ErrorType = "INTERNAL_ERROR"
	ErrNotFound         ErrorType = "NOT_FOUND"
	ErrRateLimited      ErrorType = "RATE_LIMITED"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	Details    any       `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches a structured payload rendered next to the message.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewRiskReject(msg string) *AppError {
	return New(ErrRiskReject, msg, nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewNotFound(msg string, cause error) *AppError {
	return New(ErrNotFound, msg, cause)
}

func NewConflict(msg string, cause error) *AppError {
	return New(ErrConflict, msg, cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err carries an AppError of the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrRiskReject, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrForbidden, ErrTransitionDenied:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrCoolingPeriod, ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrReadOnly:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrRiskReject:
		return "Check the withdrawal amount against the applicable policy limits."
	case ErrAuthFailed:
		return "Check the X-Api-Key header."
	case ErrTransitionDenied:
		return "Provide an admin id and a confirmation reason of the required length."
	case ErrCoolingPeriod:
		return "Wait until the cooling period ends."
	case ErrConflict:
		return "Reload the resource and retry."
	case ErrReadOnly:
		return "Gateway is in read-only mode."
	case ErrRateLimited:
		return "Slow down."
	default:
		return ""
	}
}
