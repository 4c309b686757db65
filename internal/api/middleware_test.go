package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookitnow/chat-server/internal/database"
	"github.com/bookitnow/chat-server/internal/types"
	"github.com/stretchr/testify/assert"
)

func Test_authMiddleware(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{}, nil)

	token, err := app.createJwtForSession(types.User{Id: 7}, time.Hour)
	assert.NoError(t, err, "failed to create token")

	tcases := []struct {
		name         string
		authHeader   string
		query        string
		expectedCode int
		expectedId   int
	}{
		{
			name:         "valid bearer token",
			authHeader:   "Bearer " + token,
			expectedCode: http.StatusOK,
			expectedId:   7,
		},
		{
			name:         "valid query token",
			query:        token,
			expectedCode: http.StatusOK,
			expectedId:   7,
		},
		{
			name:         "missing token",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "invalid token",
			authHeader:   "Bearer garbage",
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var gotId int
			handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
				gotId, _ = UserId(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			target := "/api/auth/session"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			rr := httptest.NewRecorder()
			handler(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code, "expected status code to match")
			if tc.expectedCode == http.StatusOK {
				assert.Equal(t, tc.expectedId, gotId, "expected user id in context")
				assert.NotEmpty(t, rr.Header().Get("Cache-Control"), "expected cache headers on authenticated response")
			}
		})
	}
}

func Test_requireSelf(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{}, nil)

	tcases := []struct {
		name         string
		ctxUserId    int
		pathUserId   string
		expectedCode int
	}{
		{
			name:         "matching identity",
			ctxUserId:    1,
			pathUserId:   "1",
			expectedCode: http.StatusOK,
		},
		{
			name:         "mismatched identity",
			ctxUserId:    1,
			pathUserId:   "2",
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "non-numeric path segment",
			ctxUserId:    1,
			pathUserId:   "abc",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unauthenticated",
			pathUserId:   "1",
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			handler := app.requireSelf(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/chat/rooms/"+tc.pathUserId, nil)
			req.SetPathValue("userId", tc.pathUserId)
			if tc.ctxUserId > 0 {
				req = req.WithContext(WithUserId(req.Context(), tc.ctxUserId))
			}

			rr := httptest.NewRecorder()
			handler(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code, "expected status code to match")
		})
	}
}

func Test_errorHandler(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{}, nil)

	t.Run("recovers from panic", func(t *testing.T) {
		handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
		assert.Equal(t, "close", rr.Header().Get("Connection"), "expected connection close header")
	})

	t.Run("passes through normal responses", func(t *testing.T) {
		handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTeapot, rr.Code)
	})
}
