package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-allocator/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/quiz-allocator/pkg/http/errors"
)

type claimsKey struct{}

// IdentityMiddleware validates bearer tokens and injects the caller's claims
// into the request context. Requests without a token pass through untouched;
// a nil verifier disables the check entirely.
func IdentityMiddleware(verifier *jwt.Verifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if verifier == nil || authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid authorization header")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if errors.Is(err, jwt.ErrExpiredToken) {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeTokenExpired, "Token expired")
				return
			}
			if err != nil {
				logger.Warn().Err(err).Msg("token validation failed")
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores verified claims on ctx.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// RequesterFromContext returns the verified requester id, if any.
func RequesterFromContext(ctx context.Context) (string, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	if !ok || claims == nil {
		return "", false
	}
	return claims.Requester(), true
}
