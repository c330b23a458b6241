package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAccessToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "plain", header: "Bearer abc123", token: "abc123", ok: true},
		{name: "leading_whitespace", header: "  Bearer abc123", token: "abc123", ok: true},
		{name: "empty_token", header: "Bearer ", token: "", ok: true},
		{name: "wrong_scheme", header: "Basic abc123", ok: false},
		{name: "no_space", header: "Bearerabc123", ok: false},
		{name: "trailing_garbage", header: "Bearer abc 123", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token, ok := ExtractAccessToken(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestAuth(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := AccessTokenFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Token", token)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing_header_is_401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		Auth(nil)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing Authorization header")
	})

	t.Run("malformed_header_is_400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc123")
		Auth(nil)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty_token_is_400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer ")
		Auth(nil)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("token_reaches_context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc123")
		Auth(nil)(okHandler).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "abc123", rec.Header().Get("X-Token"))
	})
}

func TestAuthJWT(t *testing.T) {
	secret := []byte("test-secret")
	sign := func(t *testing.T, claims jwt.MapClaims, key []byte) string {
		t.Helper()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}

	principalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Principal", sub)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid_token", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{
			"sub": "alice@example.com",
			"exp": time.Now().Add(time.Hour).Unix(),
		}, secret)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		Auth(secret)(principalHandler).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice@example.com", rec.Header().Get("X-Principal"))
	})

	t.Run("wrong_key_is_401", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{"sub": "alice@example.com"}, []byte("other-secret"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		Auth(secret)(principalHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing_subject_is_401", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, secret)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		Auth(secret)(principalHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired_token_is_401", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{
			"sub": "alice@example.com",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, secret)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		Auth(secret)(principalHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
