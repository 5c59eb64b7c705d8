package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jdoherty/chatserver/internal/database"
	"github.com/jdoherty/chatserver/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp(t, &database.MockRepository{})

	validToken, err := app.createJwtForSession(types.User{Id: 42}, time.Hour)
	assert.NoError(t, err)

	tcases := []struct {
		name         string
		prepare      func(r *http.Request)
		expectNext   bool
		expectedCode int
	}{
		{
			name: "valid cookie passes through with the user on the context",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: validToken})
			},
			expectNext:   true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "missing credential is unauthorized",
			prepare:      func(r *http.Request) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "invalid token is unauthorized",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "garbage"})
			},
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			nextCalled := false
			handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				userId, ok := UserId(r.Context())
				assert.True(t, ok, "expected user id on the context")
				assert.Equal(t, 42, userId)
				w.WriteHeader(http.StatusOK)
			})

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
			tc.prepare(req)
			handler(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.Equal(t, tc.expectNext, nextCalled)
			if tc.expectNext {
				assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")
			}
		})
	}
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	app := newTestApp(t, &database.MockRepository{})

	handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "close", rr.Header().Get("Connection"))
}
