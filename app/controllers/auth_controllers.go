package controllers

import (
	"github.com/shashiranjanraj/ordersvc/app/requests"
	"github.com/shashiranjanraj/ordersvc/app/services"
	"github.com/shashiranjanraj/ordersvc/pkg/ctx"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

// Register handles POST /api/auth/register.
func (c *AuthController) Register(cx *ctx.Context) error {
	var req requests.RegisterRequest
	if err := cx.BindJSON(&req); err != nil {
		return err
	}
	res, err := c.service.Register(cx.Context(), req)
	if err != nil {
		return err
	}
	return cx.Created(res)
}

// Login handles POST /api/auth/login.
func (c *AuthController) Login(cx *ctx.Context) error {
	var req requests.LoginRequest
	if err := cx.BindJSON(&req); err != nil {
		return err
	}
	res, err := c.service.Login(cx.Context(), req)
	if err != nil {
		return err
	}
	return cx.Success(res)
}
