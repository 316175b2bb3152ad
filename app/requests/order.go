package requests

import (
	"strings"

	"github.com/shashiranjanraj/ordersvc/app/models"
)

type ItemInput struct {
	ItemID   string   `json:"itemId"   validate:"required"`
	Name     string   `json:"name"     validate:"required"`
	Price    *float64 `json:"price"    validate:"required,gte=0"`
	Quantity *float64 `json:"quantity" validate:"required,integer,gte=1"`
}

type AddressInput struct {
	FullName     string  `json:"fullName"     validate:"required"`
	Phone        string  `json:"phone"        validate:"required"`
	AddressLine1 string  `json:"addressLine1" validate:"required"`
	AddressLine2 *string `json:"addressLine2" validate:"omitempty"`
	City         string  `json:"city"         validate:"required"`
	State        string  `json:"state"        validate:"required"`
	Country      string  `json:"country"      validate:"required"`
	PostalCode   string  `json:"postalCode"   validate:"required"`
}

// CreateOrderRequest ignores any client-side totals.
type CreateOrderRequest struct {
	Items           []ItemInput   `json:"items"           validate:"required,min=1,dive"`
	ShippingAddress *AddressInput `json:"shippingAddress" validate:"required"`
}

func (r *CreateOrderRequest) Normalize() {
	for i := range r.Items {
		r.Items[i].Name = strings.TrimSpace(r.Items[i].Name)
	}
}

func (r CreateOrderRequest) ToItems() []models.Item {
	out := make([]models.Item, len(r.Items))
	for i, in := range r.Items {
		out[i] = models.Item{ItemID: in.ItemID, Name: in.Name}
		if in.Price != nil {
			out[i].Price = *in.Price
		}
		if in.Quantity != nil {
			out[i].Quantity = int(*in.Quantity)
		}
	}
	return out
}

func (r CreateOrderRequest) ToAddress() models.ShippingAddress {
	if r.ShippingAddress == nil {
		return models.ShippingAddress{}
	}
	a := r.ShippingAddress
	return models.ShippingAddress{
		FullName:     a.FullName,
		Phone:        a.Phone,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
		PostalCode:   a.PostalCode,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Shipped Delivered Cancelled"`
}

// ListOrdersQuery holds the raw query parameters of GET /api/orders.
type ListOrdersQuery struct {
	Page   int
	Limit  int
	Status string
	UserID string
	From   string
	To     string
}
