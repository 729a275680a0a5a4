package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(userID uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func echoUserHandler(captured *uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	auth := NewJWTAuth(testSecret)
	userID := uuid.New()

	var captured uuid.UUID
	handler := auth.Middleware(echoUserHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/analytics/videos/v1/resume", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(userID)))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, userID, captured)
}

func TestMiddleware_Rejections(t *testing.T) {
	auth := NewJWTAuth(testSecret)
	userID := uuid.New()

	expired := validClaims(userID)
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name         string
		authHeader   string
		expectedCode int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc123", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", validClaims(userID)), http.StatusUnauthorized},
		{"expired token", "Bearer " + signToken(t, testSecret, expired), http.StatusUnauthorized},
		{"no user_id claim", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}), http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("Handler must not be reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/analytics/videos/v1/resume", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)
			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	auth := NewJWTAuth(testSecret)
	userID := uuid.New()

	t.Run("anonymous passes through", func(t *testing.T) {
		var captured *uuid.UUID
		handler := auth.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetOptionalUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/video-view", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Nil(t, captured)
	})

	t.Run("invalid token still passes through anonymously", func(t *testing.T) {
		var captured *uuid.UUID
		handler := auth.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetOptionalUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/video-view", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Nil(t, captured)
	})

	t.Run("valid token attaches user", func(t *testing.T) {
		var captured *uuid.UUID
		handler := auth.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetOptionalUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/video-view", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(userID)))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.NotNil(t, captured)
		assert.Equal(t, userID, *captured)
	})
}

func TestAdminOnly(t *testing.T) {
	auth := NewJWTAuth(testSecret)
	userID := uuid.New()

	adminClaims := validClaims(userID)
	adminClaims["role"] = "admin"

	studentClaims := validClaims(userID)
	studentClaims["role"] = "student"

	tests := []struct {
		name         string
		authHeader   string
		expectedCode int
	}{
		{"admin allowed", "Bearer " + signToken(t, testSecret, adminClaims), http.StatusOK},
		{"non-admin forbidden", "Bearer " + signToken(t, testSecret, studentClaims), http.StatusForbidden},
		{"no role forbidden", "Bearer " + signToken(t, testSecret, validClaims(userID)), http.StatusForbidden},
		{"missing token unauthorized", "", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := auth.AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics/dashboard", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)
			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}
