package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-signup-verify/internal/domain"
	jwtinfra "github.com/go-signup-verify/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// TokenVerifier checks a token against the purpose it is presented for.
type TokenVerifier interface {
	Verify(token, purpose string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that accepts only access-purpose Bearer tokens and
// injects their claims into the context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, domain.KindInvalidToken, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := verifier.Verify(tokenStr, domain.PurposeAccess)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, domain.KindInvalidToken, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
