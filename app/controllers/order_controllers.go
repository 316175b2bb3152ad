package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/app/requests"
	"github.com/shashiranjanraj/ordersvc/app/services"
	"github.com/shashiranjanraj/ordersvc/pkg/ctx"
)

type OrderController struct {
	service *services.OrderService
}

func NewOrderController(service *services.OrderService) *OrderController {
	return &OrderController{service: service}
}

// Store handles POST /api/orders.
func (c *OrderController) Store(cx *ctx.Context) error {
	var req requests.CreateOrderRequest
	if err := cx.BindJSON(&req); err != nil {
		return err
	}
	order, err := c.service.Create(cx.Context(), cx.Identity(), req)
	if err != nil {
		return err
	}
	return cx.Created(order)
}

// Show handles GET /api/orders/{id}.
func (c *OrderController) Show(cx *ctx.Context) error {
	order, cached, err := c.service.Get(cx.Context(), cx.Identity(), cx.Param("id"))
	if err != nil {
		return err
	}
	return cx.JSON(http.StatusOK, map[string]any{"data": order, "cache": cached})
}

// Invoice handles GET /api/orders/{id}/invoice.
func (c *OrderController) Invoice(cx *ctx.Context) error {
	body, err := c.service.Invoice(cx.Context(), cx.Identity(), cx.Param("id"))
	if err != nil {
		return err
	}
	return cx.Blob(http.StatusOK, "text/html; charset=utf-8", body)
}

// UpdateStatus handles PATCH /api/orders/{id}/status.
func (c *OrderController) UpdateStatus(cx *ctx.Context) error {
	var req requests.UpdateStatusRequest
	if err := cx.BindJSON(&req); err != nil {
		return err
	}
	order, err := c.service.UpdateStatus(cx.Context(), cx.Identity(), cx.Param("id"), models.Status(req.Status))
	if err != nil {
		return err
	}
	return cx.Success(order)
}

// Index handles GET /api/orders.
func (c *OrderController) Index(cx *ctx.Context) error {
	q := requests.ListOrdersQuery{
		Page:   cx.QueryInt("page", 0),
		Limit:  cx.QueryInt("limit", 0),
		Status: cx.Query("status"),
		UserID: cx.Query("userId"),
		From:   cx.Query("from"),
		To:     cx.Query("to"),
	}
	orders, page, err := c.service.List(cx.Context(), cx.Identity(), q)
	if err != nil {
		return err
	}
	return cx.Paginated(orders, page)
}

// Health handles GET /api.
func Health(cx *ctx.Context) error {
	return cx.Success(map[string]string{"message": "API is working"})
}
