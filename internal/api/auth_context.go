package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagreturn/tagreturn-server/internal/auth"
	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// claimsKey is the context key for the verified access token claims.
const claimsKey ctxKey = "claims"

// GetClaims returns the verified token claims from context.
// Returns 401 error if the request is not authenticated.
func GetClaims(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok || claims == nil || claims.UserUUID == "" {
		return nil, huma.Error401Unauthorized("Authentication required")
	}
	return claims, nil
}

// GetUserID returns the authenticated user's UUID from context.
func GetUserID(ctx context.Context) (string, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return "", err
	}
	return claims.UserUUID, nil
}

func setClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// authMiddleware returns a middleware that validates Bearer tokens and stores
// the claims in context. Requests without a valid token continue
// unauthenticated; handlers use GetUserID to reject them.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.VerifyAccessToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin validates the user is authenticated and has admin role.
// Returns the user ID if successful, error otherwise.
func RequireAdmin(ctx context.Context) (string, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return "", err
	}
	if !claims.IsAdmin() {
		return "", domainerrors.Forbidden("Admin access required")
	}
	return claims.UserUUID, nil
}
