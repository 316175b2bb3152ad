package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/ordersvc/pkg/auth"
)

func serve(h http.Handler, id *auth.Identity) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *id))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestHasRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	adminOnly := HasRole("Admin")(ok)
	anyone := HasRole()(ok)

	admin := &auth.Identity{UserID: "a", Role: "Admin"}
	user := &auth.Identity{UserID: "u", Role: "User"}

	assert.Equal(t, http.StatusOK, serve(adminOnly, admin))
	assert.Equal(t, http.StatusForbidden, serve(adminOnly, user))
	assert.Equal(t, http.StatusUnauthorized, serve(adminOnly, nil))

	assert.Equal(t, http.StatusOK, serve(anyone, user))
	assert.Equal(t, http.StatusUnauthorized, serve(anyone, nil))
}
