package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
	"github.com/shashiranjanraj/ordersvc/pkg/orm"
)

var ErrOrderNotFound = apperr.New(apperr.NotFound, "Order not found")

// OrderFilter narrows List. Zero fields are ignored; From and To are
// inclusive.
type OrderFilter struct {
	UserID string
	Status models.Status
	From   *time.Time
	To     *time.Time
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order. Totals and status are set by the model hooks
// and SetItems; the caller only supplies items, address and owner.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if len(order.Items) == 0 {
		return apperr.New(apperr.BadRequest, "Order must contain at least one item")
	}
	order.SetItems(order.Items)
	order.Status = models.StatusPending
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("orders: create: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (models.Order, error) {
	var order models.Order
	err := orm.New(ctx, r.db, &models.Order{}).Where("id = ?", id).First(&order)
	return order, notFound(err, ErrOrderNotFound)
}

// UpdateStatus writes status and updated_at and returns the fresh row.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (models.Order, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return models.Order{}, fmt.Errorf("orders: update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Order{}, ErrOrderNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *OrderRepository) SetInvoiceURL(ctx context.Context, id, url string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("invoice_url", url)
	if res.Error != nil {
		return fmt.Errorf("orders: set invoice url: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// List returns one page of matching orders, newest first.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter, p orm.Pagination) ([]models.Order, orm.Pagination, error) {
	orders := []models.Order{}
	q := orm.New(ctx, r.db, &models.Order{}).
		WhereIf(f.UserID != "", "user_id = ?", f.UserID).
		WhereIf(f.Status != "", "status = ?", f.Status).
		WhereIf(f.From != nil, "created_at >= ?", deref(f.From)).
		WhereIf(f.To != nil, "created_at <= ?", deref(f.To)).
		Order("created_at desc").
		Order("id desc")

	page, err := q.Paginate(p, &orders)
	if err != nil {
		return nil, page, fmt.Errorf("orders: list: %w", err)
	}
	return orders, page, nil
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
