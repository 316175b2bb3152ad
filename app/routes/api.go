package routes

import (
	"github.com/shashiranjanraj/ordersvc/app/controllers"
	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/pkg/ctx"
	"github.com/shashiranjanraj/ordersvc/pkg/rbac"
	"github.com/shashiranjanraj/ordersvc/pkg/router"
)

// API is everything the /api routes need.
type API struct {
	Auth         *controllers.AuthController
	Orders       *controllers.OrderController
	Authenticate router.Middleware
}

func RegisterAPI(r *router.Router, h API) {
	api := r.Group("/api")
	api.Get("/", "health", ctx.Wrap(controllers.Health))

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", "auth.register", ctx.Wrap(h.Auth.Register))
	authRoutes.Post("/login", "auth.login", ctx.Wrap(h.Auth.Login))

	orders := api.Group("/orders", h.Authenticate)
	orders.Post("/", "orders.store", ctx.Wrap(h.Orders.Store))
	orders.Get("/", "orders.index", ctx.Wrap(h.Orders.Index))
	orders.Get("/{id}", "orders.show", ctx.Wrap(h.Orders.Show))
	orders.Get("/{id}/invoice", "orders.invoice", ctx.Wrap(h.Orders.Invoice))
	orders.Patch("/{id}/status", "orders.status", ctx.Wrap(h.Orders.UpdateStatus), rbac.HasRole(models.RoleAdmin))
}
