package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeTimeout            = "TIMEOUT"
	CodeInvalidInput       = "INVALID_INPUT"
)

// Conflict and validation sub-reasons, reported in Details["reason"].
const (
	ReasonSeatUnavailable  = "SEAT_UNAVAILABLE"
	ReasonAlreadyCancelled = "ALREADY_CANCELLED"
	ReasonUserExists       = "USER_EXISTS"
	ReasonInvalidDateRange = "INVALID_DATE_RANGE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

// Reason returns Details["reason"] or an empty string.
func (e *AppError) Reason() string {
	if e.Details == nil {
		return ""
	}
	reason, _ := e.Details["reason"].(string)
	return reason
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidDateRange(message string) *AppError {
	return Validation(message, map[string]any{"reason": ReasonInvalidDateRange})
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Details:    map[string]any{"expired": false},
	}
}

// TokenExpired is an Unauthorized error telling the client to log in again.
func TokenExpired() *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    "Session expired. Please login again.",
		HTTPStatus: http.StatusUnauthorized,
		Details:    map[string]any{"expired": true},
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func SeatUnavailable(seatNumber string) *AppError {
	return Conflict(fmt.Sprintf("Seat %s is already booked", seatNumber)).WithDetails(map[string]any{
		"reason":      ReasonSeatUnavailable,
		"seat_number": seatNumber,
	})
}

func AlreadyCancelled(ticketID string) *AppError {
	return Conflict("Ticket already cancelled").WithDetails(map[string]any{
		"reason":    ReasonAlreadyCancelled,
		"ticket_id": ticketID,
	})
}

func UserExists(email string) *AppError {
	return Conflict("User already exists").WithDetails(map[string]any{
		"reason": ReasonUserExists,
		"email":  email,
	})
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasReason reports whether err is an AppError carrying the given sub-reason.
func HasReason(err error, reason string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Reason() == reason
}
