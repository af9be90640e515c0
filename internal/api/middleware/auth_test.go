package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/api/middleware"
	"github.com/phrazzld/todo-api/internal/mocks"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name        string
		header      string
		validateErr error
		wantCode    int
		wantBody    string
		wantToken   string
	}{
		{
			name:      "valid bearer token",
			header:    "Bearer good-token",
			wantCode:  http.StatusOK,
			wantToken: "good-token",
		},
		{
			name:      "scheme is case-insensitive",
			header:    "bearer good-token",
			wantCode:  http.StatusOK,
			wantToken: "good-token",
		},
		{
			name:     "missing header",
			wantCode: http.StatusUnauthorized,
			wantBody: "Authorization header required",
		},
		{
			name:     "wrong scheme",
			header:   "Basic dXNlcjpwYXNz",
			wantCode: http.StatusUnauthorized,
			wantBody: "Invalid authorization format",
		},
		{
			name:     "no token",
			header:   "Bearer ",
			wantCode: http.StatusUnauthorized,
			wantBody: "Invalid authorization format",
		},
		{
			name:     "no separator",
			header:   "Bearer",
			wantCode: http.StatusUnauthorized,
			wantBody: "Invalid authorization format",
		},
		{
			name:        "expired token",
			header:      "Bearer old",
			validateErr: auth.ErrExpiredToken,
			wantCode:    http.StatusUnauthorized,
			wantBody:    "Token expired",
		},
		{
			name:        "invalid token",
			header:      "Bearer forged",
			validateErr: auth.ErrInvalidToken,
			wantCode:    http.StatusUnauthorized,
			wantBody:    "Invalid token",
		},
		{
			name:        "refresh token used as access token",
			header:      "Bearer refresh",
			validateErr: auth.ErrWrongTokenType,
			wantCode:    http.StatusUnauthorized,
			wantBody:    "Invalid token",
		},
		{
			name:        "unexpected validation failure",
			header:      "Bearer whatever",
			validateErr: errors.New("boom"),
			wantCode:    http.StatusUnauthorized,
			wantBody:    "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotToken string
			jwtService := &mocks.MockJWTService{
				ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
					gotToken = token
					if tt.validateErr != nil {
						return nil, tt.validateErr
					}
					return &auth.Claims{UserID: userID, TokenType: auth.TokenTypeAccess}, nil
				},
			}

			var seenUser uuid.UUID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, ok := middleware.GetUserID(r)
				require.True(t, ok)
				seenUser = id
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			middleware.NewAuthMiddleware(jwtService).Authenticate(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, userID, seenUser)
				assert.Equal(t, tt.wantToken, gotToken)
				return
			}
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			assert.Equal(t, uuid.Nil, seenUser)
		})
	}
}

func TestAuthenticate_TagsRequestLogger(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	jwtService := &mocks.MockJWTService{Claims: &auth.Claims{UserID: userID}}
	log, buf := logger.GetTestLogger(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside handler")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	req.Header.Set("Authorization", "Bearer token")
	middleware.NewAuthMiddleware(jwtService).Authenticate(next).ServeHTTP(httptest.NewRecorder(), req)

	entries := buf.EntriesWithLevel(t, "INFO")
	require.Len(t, entries, 1)
	assert.Equal(t, userID.String(), entries[0]["user_id"])
}
