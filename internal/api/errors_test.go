package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jdoherty/chatserver/internal/chat"
	"github.com/stretchr/testify/assert"
)

func TestFromServiceError(t *testing.T) {
	tcases := []struct {
		name            string
		err             error
		expectedCode    int
		expectedMessage string
	}{
		{
			name:            "validation maps to bad request",
			err:             chat.NewValidationError("room name is required"),
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "room name is required",
		},
		{
			name:            "forbidden maps to 403",
			err:             chat.NewForbiddenError("access denied"),
			expectedCode:    http.StatusForbidden,
			expectedMessage: "access denied",
		},
		{
			name:            "not found maps to 404",
			err:             chat.NewNotFoundError("room not found"),
			expectedCode:    http.StatusNotFound,
			expectedMessage: "room not found",
		},
		{
			name:            "conflict maps to 409",
			err:             chat.NewConflictError("user already exists"),
			expectedCode:    http.StatusConflict,
			expectedMessage: "user already exists",
		},
		{
			name:            "unavailable maps to 503",
			err:             chat.NewUnavailableError("email delivery failed", errors.New("dial tcp: connection refused")),
			expectedCode:    http.StatusServiceUnavailable,
			expectedMessage: "email delivery failed",
		},
		{
			name:            "raw errors become opaque internal errors",
			err:             errors.New("pq: connection reset"),
			expectedCode:    http.StatusInternalServerError,
			expectedMessage: "internal server error",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := fromServiceError(tc.err)

			assert.Equal(t, tc.expectedCode, apiErr.StatusCode)
			assert.Equal(t, tc.expectedMessage, apiErr.Message)
		})
	}
}

func TestFromServiceError_DoesNotLeakWrappedDetail(t *testing.T) {
	err := chat.NewUnavailableError("email delivery failed", errors.New("dial tcp 10.0.0.1:587: i/o timeout"))

	apiErr := fromServiceError(err)
	assert.NotContains(t, apiErr.Message, "10.0.0.1", "transport detail must not reach the response body")
}
