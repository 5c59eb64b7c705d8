package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jdoherty/chatserver/internal/chat"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

func NewForbiddenError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusForbidden,
		Message:    lower(http.StatusText(http.StatusForbidden)),
	}
}

func NewConflictError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusConflict,
		Message:    lower(http.StatusText(http.StatusConflict)),
	}
}

func NewMethodNotAllowedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    lower(http.StatusText(http.StatusMethodNotAllowed)),
	}
}

// fromServiceError maps a service failure to its API shape. Service
// messages are safe to expose; anything unrecognized becomes an opaque
// internal error so store diagnostics never reach the caller.
func fromServiceError(err error) *ApiError {
	var svcErr *chat.Error
	if !errors.As(err, &svcErr) {
		return NewInternalServerError(err)
	}

	var statusCode int
	switch svcErr.Kind {
	case chat.KindValidation:
		statusCode = http.StatusBadRequest
	case chat.KindForbidden:
		statusCode = http.StatusForbidden
	case chat.KindNotFound:
		statusCode = http.StatusNotFound
	case chat.KindConflict:
		statusCode = http.StatusConflict
	case chat.KindUnavailable:
		statusCode = http.StatusServiceUnavailable
	default:
		return NewInternalServerError(err)
	}

	return &ApiError{
		StatusCode: statusCode,
		Message:    svcErr.Message,
		Err:        svcErr.Err,
	}
}
