package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	MsgInvalidURL       = "Invalid YouTube URL"
	MsgURLRequired      = "YouTube URL is required"
	MsgInvalidAction    = "Invalid action"
	MsgInvalidBody      = "Invalid JSON body"
	MsgMethodNotAllowed = "Method not allowed"
	MsgProvider         = "Failed to get video information"
	MsgExtraction       = "Failed to convert video to MP3"
	MsgInternal         = "Internal server error"
	MsgRateLimited      = "Rate limit exceeded"
)

// AppError is the only error shape the gateway serializes. Message is sent to
// the caller; Err and Op stay in the logs.
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func E(op string, err error, message string, code int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func InvalidInput(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusBadRequest)
}

func MethodNotAllowed(op string) *AppError {
	return E(op, nil, MsgMethodNotAllowed, http.StatusMethodNotAllowed)
}

func Provider(op string, err error) *AppError {
	return E(op, err, MsgProvider, http.StatusInternalServerError)
}

func Extraction(op string, err error) *AppError {
	return E(op, err, MsgExtraction, http.StatusInternalServerError)
}

func Internal(op string, err error) *AppError {
	return E(op, err, MsgInternal, http.StatusInternalServerError)
}

func RateLimitExceeded(op string) *AppError {
	return E(op, nil, MsgRateLimited, http.StatusTooManyRequests)
}

// As extracts an AppError from err, mapping anything else to an internal fault.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("unknown", err)
}

func IsClientError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code >= 400 && appErr.Code < 500
}
