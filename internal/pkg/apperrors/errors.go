package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrDecode              ErrorType = "DECODE_ERROR"
	ErrMetadataUnavailable ErrorType = "METADATA_UNAVAILABLE"
	ErrLedgerTransport     ErrorType = "LEDGER_TRANSPORT_ERROR"
	ErrInvalidRange        ErrorType = "INVALID_RANGE"
	ErrInvalidInterval     ErrorType = "INVALID_INTERVAL"
	ErrRateLimited         ErrorType = "RATE_LIMITED"
	ErrInsufficientCredits ErrorType = "INSUFFICIENT_CREDITS"
	ErrNoData              ErrorType = "NO_DATA"
	ErrStoreWrite          ErrorType = "STORE_WRITE_ERROR"
	ErrStoreRead           ErrorType = "STORE_READ_ERROR"
	ErrInternal            ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
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

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
	}
}

func NewInvalidRange(msg string) *AppError {
	return New(ErrInvalidRange, msg, nil)
}

func NewInvalidInterval(msg string) *AppError {
	return New(ErrInvalidInterval, msg, nil)
}

func NewRateLimited() *AppError {
	return New(ErrRateLimited, "rate limit exceeded, try again later", nil)
}

func NewInsufficientCredits(userID string) *AppError {
	return New(ErrInsufficientCredits, fmt.Sprintf("user %s has no credits remaining", userID), nil)
}

func NewNoData() *AppError {
	return New(ErrNoData, "no fills found for the requested range", nil)
}

func NewMetadataUnavailable(marketID string, cause error) *AppError {
	return New(ErrMetadataUnavailable, fmt.Sprintf("market metadata unavailable for %s", marketID), cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err is an AppError of the given type.
func Is(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRange, ErrInvalidInterval:
		return http.StatusBadRequest
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrInsufficientCredits:
		return http.StatusPaymentRequired
	case ErrNoData:
		return http.StatusNotFound
	case ErrDecode, ErrMetadataUnavailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
