package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusShipped, StatusDelivered, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// transitions is the strict lifecycle. Delivered and Cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered, StatusCancelled},
}

// CanTransition reports whether the strict lifecycle allows s -> to.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Item struct {
	ItemID   string  `json:"itemId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

type ShippingAddress struct {
	FullName     string  `json:"fullName"`
	Phone        string  `json:"phone"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Country      string  `json:"country"`
	PostalCode   string  `json:"postalCode"`
}

// Order belongs to exactly one user. Items and the address are embedded by
// value as JSON columns so item order survives a round trip.
type Order struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(36);not null;index" json:"userId"`
	Items           []Item          `gorm:"serializer:json;type:text;not null" json:"items"`
	TotalAmount     float64         `gorm:"not null" json:"totalAmount"`
	Status          Status          `gorm:"size:20;not null;default:Pending;index" json:"status"`
	ShippingAddress ShippingAddress `gorm:"serializer:json;type:text;not null" json:"shippingAddress"`
	InvoiceURL      *string         `gorm:"size:512" json:"invoiceUrl"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// SetItems stores items with each line total and the order total
// recomputed. Any totals the caller supplied are discarded.
func (o *Order) SetItems(items []Item) {
	sum := decimal.Zero
	out := make([]Item, len(items))
	for i, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		it.Total = line.InexactFloat64()
		out[i] = it
		sum = sum.Add(line)
	}
	o.Items = out
	o.TotalAmount = sum.InexactFloat64()
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	return nil
}

// OwnedBy reports whether userID placed the order.
func (o Order) OwnedBy(userID string) bool { return o.UserID == userID }
