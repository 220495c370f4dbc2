package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"

	"github.com/Gagansidh-u/studio/internal/config"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

// WithAuth validates the bearer token and hands the authenticated user
// id to downstream handlers via the User-ID header. Requests whose path
// matches a configured public prefix (login, register, the catalog) are
// passed through untouched.
func WithAuth(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(cfg.AuthDisabledURLs, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := tokenSubject(r.Header.Get("Authorization"), cfg.PrivateKey)
			if err != nil {
				logger.Log.Warn("rejecting unauthenticated request",
					logger.String("path", r.URL.Path),
					logger.Error(err))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			r.Header.Set("User-ID", subject)
			next.ServeHTTP(w, r)
		})
	}
}

func isPublic(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// tokenSubject parses the Authorization header and returns the verified
// subject claim.
func tokenSubject(header, privateKey string) (string, error) {
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return "", errors.New("missing bearer token")
	}

	var claims jwt.StandardClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(privateKey), nil
	}); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token carries no subject")
	}

	return claims.Subject, nil
}
