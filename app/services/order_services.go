package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/ordersvc/app/jobs"
	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/app/repositories"
	"github.com/shashiranjanraj/ordersvc/app/requests"
	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
	"github.com/shashiranjanraj/ordersvc/pkg/auth"
	"github.com/shashiranjanraj/ordersvc/pkg/cache"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/metrics"
	"github.com/shashiranjanraj/ordersvc/pkg/orm"
	"github.com/shashiranjanraj/ordersvc/pkg/queue"
	"github.com/shashiranjanraj/ordersvc/pkg/storage"
	"github.com/shashiranjanraj/ordersvc/pkg/validate"
)

const (
	OrderCacheTTL = 300 * time.Second

	// enqueueTimeout bounds the post-create handoff, which outlives a
	// cancelled request.
	enqueueTimeout = 5 * time.Second
)

var (
	ErrAccessDenied      = apperr.New(apperr.Forbidden, "Access denied")
	ErrAdminOnly         = apperr.New(apperr.Forbidden, "Only Admin can change status")
	ErrInvalidOrderID    = apperr.New(apperr.BadRequest, "Invalid order ID")
	ErrInvalidDateFilter = apperr.New(apperr.BadRequest, "Invalid date filter")
	ErrInvoiceNotReady   = apperr.New(apperr.NotFound, "Invoice not ready")
)

// OrderCacheKey is the cache key of a single order.
func OrderCacheKey(id string) string { return "order:" + id }

// Dispatcher hands jobs to the queue. *queue.Dispatcher implements it.
type Dispatcher interface {
	Enqueue(ctx context.Context, queue, job string, payload any) (queue.Envelope, error)
	Defer(ctx context.Context, queue, job string, payload any, cause error) (queue.Envelope, error)
}

type OrderOptions struct {
	// StrictOwnership applies the owner-or-Admin check to cache hits too.
	StrictOwnership bool
	// StrictTransitions enforces the status lifecycle.
	StrictTransitions bool
	MaxLimit          int
	CacheTTL          time.Duration
	// Invoices is the disk the invoice job writes to.
	Invoices storage.Disk
}

type OrderService struct {
	orders *repositories.OrderRepository
	users  *repositories.UserRepository
	cache  cache.Store
	jobs   Dispatcher
	opts   OrderOptions
}

func NewOrderService(orders *repositories.OrderRepository, users *repositories.UserRepository, store cache.Store, jobs Dispatcher, opts OrderOptions) *OrderService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = OrderCacheTTL
	}
	return &OrderService{orders: orders, users: users, cache: store, jobs: jobs, opts: opts}
}

// Create persists the order and then hands the email and invoice jobs to
// the queue. Handoff failures are logged and parked in failed_jobs; the
// order is returned regardless.
func (s *OrderService) Create(ctx context.Context, caller auth.Identity, req requests.CreateOrderRequest) (models.Order, error) {
	order := models.Order{
		UserID:          caller.UserID,
		Items:           req.ToItems(),
		ShippingAddress: req.ToAddress(),
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		return models.Order{}, err
	}
	metrics.OrdersCreated.Inc()

	s.dispatchPostCreate(ctx, order)
	return order, nil
}

func (s *OrderService) dispatchPostCreate(ctx context.Context, order models.Order) {
	log := logger.WithCtx(ctx).With("order_id", order.ID)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	email := jobs.SendOrderEmail{OrderID: order.ID, UserID: order.UserID}
	invoice := jobs.GenerateInvoice{OrderID: order.ID, UserID: order.UserID, Amount: order.TotalAmount}

	var g errgroup.Group
	g.Go(func() error {
		owner, err := s.users.FindByID(ctx, order.UserID)
		if err != nil {
			log.Error("owner lookup failed, email job parked", "error", err)
			if _, derr := s.jobs.Defer(ctx, jobs.EmailQueue, jobs.SendOrderEmailJob, email, err); derr != nil {
				log.Error("park email job", "error", derr)
			}
			return err
		}
		email.Email = owner.Email
		if _, err := s.jobs.Enqueue(ctx, jobs.EmailQueue, jobs.SendOrderEmailJob, email); err != nil {
			log.Error("enqueue email job", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		if _, err := s.jobs.Enqueue(ctx, jobs.InvoiceQueue, jobs.GenerateInvoiceJob, invoice); err != nil {
			log.Error("enqueue invoice job", "error", err)
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Warn("order created with undispatched jobs")
	}
}

// Get returns the order and whether it came from the cache. Cache hits skip
// the ownership check unless StrictOwnership is set.
func (s *OrderService) Get(ctx context.Context, caller auth.Identity, id string) (models.Order, bool, error) {
	key := OrderCacheKey(id)

	var cached models.Order
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.WithCtx(ctx).Warn("order cache read failed", "key", key, "error", err)
	}
	if hit {
		if s.opts.StrictOwnership && !canView(caller, cached) {
			return models.Order{}, true, ErrAccessDenied
		}
		return cached, true, nil
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, false, err
	}
	if !canView(caller, order) {
		return models.Order{}, false, ErrAccessDenied
	}

	if err := s.cache.Set(ctx, key, order, s.opts.CacheTTL); err != nil {
		logger.WithCtx(ctx).Warn("order cache write failed", "key", key, "error", err)
	}
	return order, false, nil
}

// UpdateStatus changes the status of id and drops its cache entry. status
// must already be one of models.Statuses.
func (s *OrderService) UpdateStatus(ctx context.Context, caller auth.Identity, id string, status models.Status) (models.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Order{}, ErrInvalidOrderID
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if caller.Role != models.RoleAdmin {
		return models.Order{}, ErrAdminOnly
	}
	if s.opts.StrictTransitions && !order.Status.CanTransition(status) {
		return models.Order{}, apperr.New(apperr.BadRequest,
			fmt.Sprintf("Cannot change status from %s to %s", order.Status, status))
	}

	updated, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return models.Order{}, err
	}
	metrics.OrderStatusChanges.WithLabelValues(string(status)).Inc()

	if err := s.cache.Delete(ctx, OrderCacheKey(id)); err != nil {
		return models.Order{}, fmt.Errorf("orders: invalidate cache: %w", err)
	}
	return updated, nil
}

// Invoice returns the stored invoice document of id. It always reads the
// order from the store and applies the owner-or-Admin check.
func (s *OrderService) Invoice(ctx context.Context, caller auth.Identity, id string) ([]byte, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, order) {
		return nil, ErrAccessDenied
	}
	if order.InvoiceURL == nil || s.opts.Invoices == nil {
		return nil, ErrInvoiceNotReady
	}

	body, err := s.opts.Invoices.Get(ctx, jobs.InvoicePath(order.ID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvoiceNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("orders: read invoice: %w", err)
	}
	return body, nil
}

// List returns one page of orders. Non-Admin callers only ever see their
// own orders.
func (s *OrderService) List(ctx context.Context, caller auth.Identity, q requests.ListOrdersQuery) ([]models.Order, orm.Pagination, error) {
	filter := repositories.OrderFilter{Status: models.Status(q.Status)}
	if caller.Role == models.RoleAdmin {
		filter.UserID = q.UserID
	} else {
		filter.UserID = caller.UserID
	}

	var err error
	if filter.From, err = dateBound(q.From); err != nil {
		return nil, orm.Pagination{}, ErrInvalidDateFilter
	}
	if filter.To, err = dateBound(q.To); err != nil {
		return nil, orm.Pagination{}, ErrInvalidDateFilter
	}

	return s.orders.List(ctx, filter, orm.NewPagination(q.Page, q.Limit, s.opts.MaxLimit))
}

func canView(caller auth.Identity, order models.Order) bool {
	return order.OwnedBy(caller.UserID) || caller.Role == models.RoleAdmin
}

// dateBound parses an optional from/to filter. Empty means no bound.
func dateBound(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := validate.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
