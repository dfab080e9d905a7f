package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeInternal    ErrorCode = "INTERNAL_ERROR"
	CodeBadRequest  ErrorCode = "BAD_REQUEST"
	CodeInvalidSort ErrorCode = "INVALID_SORT"
	CodeNotFound    ErrorCode = "NOT_FOUND"
	CodeRateLimit   ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeNoData      ErrorCode = "NO_DATA"
)

var statusByCode = map[ErrorCode]int{
	CodeBadRequest:  http.StatusBadRequest,
	CodeInvalidSort: http.StatusBadRequest,
	CodeNotFound:    http.StatusNotFound,
	CodeRateLimit:   http.StatusTooManyRequests,
	CodeNoData:      http.StatusServiceUnavailable,
}

// AppError is the error half of the API envelope. Param names the rejected
// query parameter and Section the dashboard section without data.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Param      string    `json:"param,omitempty"`
	Section    string    `json:"section,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, message string, cause error) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
		Timestamp:  time.Now().UTC(),
	}
}

// Internal hides cause from the client; it is only logged.
func Internal(cause error) *AppError {
	return newError(CodeInternal, "An unexpected error occurred", cause)
}

// BadParam rejects the value of one query parameter or signal.
func BadParam(param string, cause error) *AppError {
	e := newError(CodeBadRequest, fmt.Sprintf("invalid %s", param), cause)
	e.Param = param
	return e
}

func InvalidSort(cause error) *AppError {
	e := newError(CodeInvalidSort, "invalid sort order", cause)
	e.Param = "sort"
	return e
}

func NotFound(message string) *AppError {
	return newError(CodeNotFound, message, nil)
}

func RateLimited() *AppError {
	return newError(CodeRateLimit, "Too many requests", nil)
}

// NoData reports that an upstream input for section was never provided.
// The page renders a placeholder for that section only.
func NoData(section string, cause error) *AppError {
	e := newError(CodeNoData, fmt.Sprintf("no %s data available", section), cause)
	e.Section = section
	return e
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

// WriteError writes err in the envelope. Anything that is not an AppError
// becomes a 500 without its cause in the body.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = Internal(err)
	}
	appErr.RequestID = requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: appErr}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "request failed",
		"error_code", appErr.Code,
		"param", appErr.Param,
		"section", appErr.Section,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SuccessResponse{Data: data, Success: true})
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}
