// Package jobs holds the background handlers run after an order is placed.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/app/repositories"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/notification"
	"github.com/shashiranjanraj/ordersvc/pkg/queue"
	"github.com/shashiranjanraj/ordersvc/pkg/storage"
)

type Handlers struct {
	orders   *repositories.OrderRepository
	users    *repositories.UserRepository
	notifier *notification.Notifier
	disk     storage.Disk
	link     func(orderID string) string
}

func New(orders *repositories.OrderRepository, users *repositories.UserRepository, notifier *notification.Notifier, disk storage.Disk) *Handlers {
	return &Handlers{orders: orders, users: users, notifier: notifier, disk: disk}
}

// LinkInvoices makes GenerateInvoice record link(orderID) as the invoice
// URL instead of the disk's own URL. Disks with no public location use it.
func (h *Handlers) LinkInvoices(link func(orderID string) string) *Handlers {
	h.link = link
	return h
}

// Register binds every job name to its handler on w.
func (h *Handlers) Register(w *queue.Worker) {
	w.Handle(SendOrderEmailJob, h.SendOrderEmail)
	w.Handle(GenerateInvoiceJob, h.GenerateInvoice)
}

func decode(raw json.RawMessage, dest interface{ JobKey() string }) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("jobs: decode payload: %w", err)
	}
	if dest.JobKey() == "" {
		return errors.New("jobs: payload has no orderId")
	}
	return nil
}

// loadOrder returns (order, false, nil) when the order no longer exists;
// there is nothing left to do for it and the job completes.
func (h *Handlers) loadOrder(ctx context.Context, id string) (models.Order, bool, error) {
	order, err := h.orders.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrOrderNotFound) {
		logger.WithCtx(ctx).Warn("order vanished before job ran", "order_id", id)
		return order, false, nil
	}
	if err != nil {
		return order, false, err
	}
	return order, true, nil
}
