// Package ctx gives handlers a single request context and an error return.
//
// A handler returns an error instead of writing one; Wrap renders it through
// response.Fail so every failure has the same envelope:
//
//	func (c *OrderController) Show(cx *ctx.Context) error {
//	    order, err := c.orders.Get(cx.Context(), cx.Identity(), cx.Param("id"))
//	    if err != nil {
//	        return err
//	    }
//	    return cx.JSON(http.StatusOK, map[string]any{"data": order})
//	}
//
//	router.Get("/orders/{id}", "orders.show", ctx.Wrap(c.Show))
package ctx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/ordersvc/pkg/auth"
	"github.com/shashiranjanraj/ordersvc/pkg/bind"
	"github.com/shashiranjanraj/ordersvc/pkg/orm"
	"github.com/shashiranjanraj/ordersvc/pkg/response"
)

type HandlerFunc func(c *Context) error

// Wrap adapts h to net/http.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		if err := h(c); err != nil {
			response.Fail(w, r, err)
		}
	}
}

type Context struct {
	W http.ResponseWriter
	R *http.Request
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Param returns a chi URL parameter.
func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

// Query returns a trimmed query-string value.
func (c *Context) Query(key string) string {
	return strings.TrimSpace(c.R.URL.Query().Get(key))
}

// QueryInt parses an integer query value, returning def when it is absent
// or not a number.
func (c *Context) QueryInt(key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// Identity is the authenticated caller, zero when the route is public.
func (c *Context) Identity() auth.Identity {
	id, _ := auth.FromContext(c.R.Context())
	return id
}

// BindJSON decodes and validates the body into dest.
func (c *Context) BindJSON(dest any) error {
	return bind.JSON(c.W, c.R, dest)
}

func (c *Context) JSON(status int, body any) error {
	response.JSON(c.W, status, body)
	return nil
}

// Blob writes body as-is with the given content type.
func (c *Context) Blob(status int, contentType string, body []byte) error {
	c.W.Header().Set("Content-Type", contentType)
	c.W.Header().Set("X-Content-Type-Options", "nosniff")
	c.W.WriteHeader(status)
	_, err := c.W.Write(body)
	return err
}

func (c *Context) Success(data any) error {
	response.Success(c.W, data)
	return nil
}

func (c *Context) Created(data any) error {
	response.Created(c.W, data)
	return nil
}

func (c *Context) Paginated(data any, p orm.Pagination) error {
	response.Paginated(c.W, data, p)
	return nil
}
