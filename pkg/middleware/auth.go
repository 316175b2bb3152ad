package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
	"github.com/shashiranjanraj/ordersvc/pkg/auth"
	"github.com/shashiranjanraj/ordersvc/pkg/response"
)

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// IdentityResolver confirms the token's user still exists and returns its
// current identity. It must return an apperr NotFound when the user is gone.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID string) (auth.Identity, error)
}

// Authenticate requires "Authorization: Bearer <token>", verifies it and
// attaches the caller's auth.Identity to the request context. The role is
// taken from the stored user, not from the token.
func Authenticate(tokens TokenVerifier, users IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "No token provided")
				return
			}

			claimed, err := tokens.Verify(raw)
			if err != nil {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			id, err := users.ResolveIdentity(r.Context(), claimed.UserID)
			if errors.Is(err, apperr.ErrNotFound) {
				response.Unauthorized(w, "Invalid token (user not found)")
				return
			}
			if err != nil {
				response.Fail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
