package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gagansidh-u/studio/internal/config"
)

const testKey = "test-signing-key"

func authConfig() *config.Config {
	return &config.Config{
		PrivateKey:       testKey,
		AuthDisabledURLs: []string{"/api/login", "/api/register", "/api/catalog"},
	}
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: subject}).
		SignedString([]byte(testKey))
	require.NoError(t, err)
	return token
}

func TestWithAuthPassesPublicPaths(t *testing.T) {
	called := false
	handler := WithAuth(authConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, r.Header.Get("User-ID"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog/1", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithAuthRejectsMissingToken(t *testing.T) {
	handler := WithAuth(authConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithAuthRejectsForgedToken(t *testing.T) {
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: "u1"}).
		SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	handler := WithAuth(authConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithAuthSetsUserID(t *testing.T) {
	handler := WithAuth(authConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.Header.Get("User-ID"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
