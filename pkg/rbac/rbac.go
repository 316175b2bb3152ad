// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/ordersvc/pkg/auth"
	"github.com/shashiranjanraj/ordersvc/pkg/response"
)

// HasRole admits requests whose authenticated role is one of roles. With no
// roles it admits any authenticated request. middleware.Authenticate must
// run first; a request without an identity is answered 401.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Unauthorized")
				return
			}
			if len(allowed) > 0 && !allowed[id.Role] {
				response.Forbidden(w, "Forbidden: insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
