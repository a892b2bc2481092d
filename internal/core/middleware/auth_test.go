package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akimov/peerwallet/internal/core/auth"
)

const testSecret = "test-jwt-secret"

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, "alice@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   bool
	}{
		{"valid token", "Bearer " + token, http.StatusOK, true},
		{"missing header", "", http.StatusUnauthorized, false},
		{"not bearer", "Basic abc", http.StatusUnauthorized, false},
		{"empty token", "Bearer ", http.StatusUnauthorized, false},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotUser uuid.UUID
			var called bool

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUser, _ = auth.UserIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			Auth(testSecret, zap.NewNop())(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantUser, called)
			if tc.wantUser {
				assert.Equal(t, userID, gotUser)
			} else {
				assert.JSONEq(t, `{"message":"Unauthenticated."}`, rec.Body.String())
			}
		})
	}
}
