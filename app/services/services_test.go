package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/ordersvc/app/jobs"
	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/app/repositories"
	"github.com/shashiranjanraj/ordersvc/app/requests"
	"github.com/shashiranjanraj/ordersvc/internal/testdb"
	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
	"github.com/shashiranjanraj/ordersvc/pkg/auth"
	"github.com/shashiranjanraj/ordersvc/pkg/cache"
	"github.com/shashiranjanraj/ordersvc/pkg/queue"
	"github.com/shashiranjanraj/ordersvc/pkg/storage"
)

type env struct {
	auth     *AuthService
	orders   *OrderService
	orderDB  *repositories.OrderRepository
	cache    *cache.MemoryStore
	driver   *queue.MemoryDriver
	failed   *queue.FailedJobStore
	tokens   *auth.TokenService
	userRepo *repositories.UserRepository
}

func newEnv(t *testing.T, opts OrderOptions) env {
	t.Helper()
	db := testdb.Open(t)
	e := env{
		orderDB:  repositories.NewOrderRepository(db),
		userRepo: repositories.NewUserRepository(db),
		cache:    cache.NewMemoryStore(),
		driver:   queue.NewMemoryDriver(),
		failed:   queue.NewFailedJobStore(db),
		tokens:   auth.NewTokenService("test-secret", 0),
	}
	e.auth = NewAuthService(e.userRepo, e.tokens)
	e.orders = NewOrderService(e.orderDB, e.userRepo, e.cache, queue.NewDispatcher(e.driver, e.failed), opts)
	return e
}

func (e env) register(t *testing.T, name, email, role string) auth.Identity {
	t.Helper()
	res, err := e.auth.Register(context.Background(), requests.RegisterRequest{
		Name: name, Email: email, Password: "secret1", Role: role,
	})
	require.NoError(t, err)
	return auth.Identity{UserID: res.User.ID, Role: res.User.Role}
}

func ptr(f float64) *float64 { return &f }

func widgetRequest() requests.CreateOrderRequest {
	return requests.CreateOrderRequest{
		Items: []requests.ItemInput{{ItemID: "w-1", Name: "Widget", Price: ptr(9.99), Quantity: ptr(2)}},
		ShippingAddress: &requests.AddressInput{
			FullName: "Ann Lee", Phone: "555-0100", AddressLine1: "1 Main St",
			City: "Springfield", State: "IL", Country: "US", PostalCode: "62701",
		},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	ctx := context.Background()

	res, err := e.auth.Register(ctx, requests.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)

	id, err := e.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)

	_, err = e.auth.Register(ctx, requests.RegisterRequest{Name: "Ann", Email: requests.NormalizeEmail(" ANN@Example.com "), Password: "secret1"})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	logged, err := e.auth.Login(ctx, requests.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, logged.User.ID)

	_, wrongPass := e.auth.Login(ctx, requests.LoginRequest{Email: "ann@example.com", Password: "nope123"})
	_, noUser := e.auth.Login(ctx, requests.LoginRequest{Email: "bob@example.com", Password: "secret1"})
	assert.Equal(t, wrongPass, noUser)
	assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)

	_, err = e.auth.Login(ctx, requests.LoginRequest{Email: "ann@example.com"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestResolveIdentity(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	admin := e.register(t, "Root", "root@example.com", models.RoleAdmin)

	id, err := e.auth.ResolveIdentity(context.Background(), admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, admin, id)

	_, err = e.auth.ResolveIdentity(context.Background(), "gone")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateComputesTotalsAndEnqueues(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")

	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err)
	assert.Equal(t, 19.98, order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, ann.UserID, order.UserID)

	assert.Equal(t, 1, e.driver.Len(jobs.EmailQueue))
	assert.Equal(t, 1, e.driver.Len(jobs.InvoiceQueue))

	_, body, err := e.driver.Pop(ctx, []string{jobs.EmailQueue})
	require.NoError(t, err)
	var envelope queue.Envelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "sendOrderEmail:"+order.ID, envelope.ID)
	var p jobs.SendOrderEmail
	require.NoError(t, json.Unmarshal(envelope.Payload, &p))
	assert.Equal(t, "ann@example.com", p.Email)
}

func TestCreateParksJobsWhenHandoffFails(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	require.NoError(t, e.driver.Close())

	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err, "the order survives a failed handoff")

	records, err := e.failed.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	ids := []string{records[0].EnvelopeID, records[1].EnvelopeID}
	assert.ElementsMatch(t, []string{"sendOrderEmail:" + order.ID, "generateInvoice:" + order.ID}, ids)
}

func TestCreateParksEmailWhenOwnerMissing(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	ctx := context.Background()

	_, err := e.orders.Create(ctx, auth.Identity{UserID: "ghost", Role: models.RoleUser}, widgetRequest())
	require.NoError(t, err)

	assert.Equal(t, 0, e.driver.Len(jobs.EmailQueue))
	assert.Equal(t, 1, e.driver.Len(jobs.InvoiceQueue))
	records, err := e.failed.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, jobs.SendOrderEmailJob, records[0].Job)
}

func TestGetCacheBypass(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	bob := e.register(t, "Bob", "bob@example.com", "")
	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err)

	_, _, err = e.orders.Get(ctx, bob, order.ID)
	assert.ErrorIs(t, err, ErrAccessDenied, "cold cache checks ownership")

	_, cached, err := e.orders.Get(ctx, ann, order.ID)
	require.NoError(t, err)
	assert.False(t, cached)

	got, cached, err := e.orders.Get(ctx, bob, order.ID)
	require.NoError(t, err, "a warm cache answers without checking ownership")
	assert.True(t, cached)
	assert.Equal(t, order.ID, got.ID)
}

func TestGetStrictOwnership(t *testing.T) {
	e := newEnv(t, OrderOptions{StrictOwnership: true})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	bob := e.register(t, "Bob", "bob@example.com", "")
	admin := e.register(t, "Root", "root@example.com", models.RoleAdmin)
	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err)

	_, _, err = e.orders.Get(ctx, bob, order.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, _, err = e.orders.Get(ctx, ann, order.ID)
	require.NoError(t, err)

	_, cached, err := e.orders.Get(ctx, bob, order.ID)
	assert.True(t, cached)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, cached, err = e.orders.Get(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestGetMissingOrder(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	_, _, err := e.orders.Get(context.Background(), auth.Identity{UserID: "u"}, "not-a-uuid")
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
}

func TestUpdateStatusInvalidatesCache(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	admin := e.register(t, "Root", "root@example.com", models.RoleAdmin)
	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err)

	_, _, err = e.orders.Get(ctx, ann, order.ID)
	require.NoError(t, err)

	updated, err := e.orders.UpdateStatus(ctx, admin, order.ID, models.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)

	got, cached, err := e.orders.Get(ctx, ann, order.ID)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, models.StatusShipped, got.Status)
}

func TestUpdateStatusChecks(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	admin := e.register(t, "Root", "root@example.com", models.RoleAdmin)
	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err)

	_, err = e.orders.UpdateStatus(ctx, admin, "123", models.StatusShipped)
	assert.ErrorIs(t, err, ErrInvalidOrderID)

	_, err = e.orders.UpdateStatus(ctx, admin, "00000000-0000-4000-8000-000000000000", models.StatusShipped)
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)

	_, err = e.orders.UpdateStatus(ctx, ann, order.ID, models.StatusShipped)
	assert.ErrorIs(t, err, ErrAdminOnly)

	// Without strict transitions any status follows any other.
	_, err = e.orders.UpdateStatus(ctx, admin, order.ID, models.StatusDelivered)
	require.NoError(t, err)
	_, err = e.orders.UpdateStatus(ctx, admin, order.ID, models.StatusPending)
	require.NoError(t, err)
}

func TestUpdateStatusStrictTransitions(t *testing.T) {
	e := newEnv(t, OrderOptions{StrictTransitions: true})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	admin := e.register(t, "Root", "root@example.com", models.RoleAdmin)
	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err)

	_, err = e.orders.UpdateStatus(ctx, admin, order.ID, models.StatusDelivered)
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))

	for _, s := range []models.Status{models.StatusShipped, models.StatusDelivered} {
		_, err = e.orders.UpdateStatus(ctx, admin, order.ID, s)
		require.NoError(t, err)
	}
	_, err = e.orders.UpdateStatus(ctx, admin, order.ID, models.StatusCancelled)
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err), "Delivered is terminal")
}

type failingCache struct{ *cache.MemoryStore }

func (failingCache) Delete(context.Context, ...string) error { return errors.New("redis: connection refused") }

func TestUpdateStatusCacheDeleteFailure(t *testing.T) {
	e := newEnv(t, OrderOptions{})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	admin := e.register(t, "Root", "root@example.com", models.RoleAdmin)
	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err)

	e.orders.cache = failingCache{e.cache}
	_, err = e.orders.UpdateStatus(ctx, admin, order.ID, models.StatusShipped)
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
}

func TestListScopesNonAdmins(t *testing.T) {
	e := newEnv(t, OrderOptions{MaxLimit: 100})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	bob := e.register(t, "Bob", "bob@example.com", "")
	admin := e.register(t, "Root", "root@example.com", models.RoleAdmin)

	for i := 0; i < 3; i++ {
		_, err := e.orders.Create(ctx, ann, widgetRequest())
		require.NoError(t, err)
	}
	_, err := e.orders.Create(ctx, bob, widgetRequest())
	require.NoError(t, err)

	orders, page, err := e.orders.List(ctx, bob, requests.ListOrdersQuery{UserID: ann.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	for _, o := range orders {
		assert.Equal(t, bob.UserID, o.UserID)
	}

	_, page, err = e.orders.List(ctx, admin, requests.ListOrdersQuery{UserID: ann.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	_, page, err = e.orders.List(ctx, admin, requests.ListOrdersQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
}

func TestListPagingAndFilters(t *testing.T) {
	e := newEnv(t, OrderOptions{MaxLimit: 100})
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com", "")
	for i := 0; i < 25; i++ {
		_, err := e.orders.Create(ctx, ann, widgetRequest())
		require.NoError(t, err, fmt.Sprint(i))
	}

	orders, page, err := e.orders.List(ctx, ann, requests.ListOrdersQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, orders, 5)
	assert.Equal(t, 3, page.TotalPages)

	_, page, err = e.orders.List(ctx, ann, requests.ListOrdersQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)

	_, _, err = e.orders.List(ctx, ann, requests.ListOrdersQuery{From: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidDateFilter)

	_, page, err = e.orders.List(ctx, ann, requests.ListOrdersQuery{From: "2000-01-01", To: "2000-12-31T23:59:59Z"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, page, err = e.orders.List(ctx, ann, requests.ListOrdersQuery{From: "2000-01-01T00:00:00"})
	require.NoError(t, err, "zone-less timestamps are read as UTC")
	assert.Equal(t, int64(25), page.Total)

	orders, page, err = e.orders.List(ctx, ann, requests.ListOrdersQuery{Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Less(t, page.Page, math.MaxInt)

	_, page, err = e.orders.List(ctx, ann, requests.ListOrdersQuery{Status: string(models.StatusShipped)})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestInvoiceAccess(t *testing.T) {
	disk, err := storage.NewLocalDisk(t.TempDir(), "http://files.test")
	require.NoError(t, err)
	e := newEnv(t, OrderOptions{Invoices: disk})
	ctx := context.Background()

	ann := e.register(t, "Ann", "ann@example.com", "")
	bob := e.register(t, "Bob", "bob@example.com", "")
	admin := e.register(t, "Root", "root@example.com", models.RoleAdmin)

	order, err := e.orders.Create(ctx, ann, widgetRequest())
	require.NoError(t, err)

	_, err = e.orders.Invoice(ctx, ann, order.ID)
	assert.ErrorIs(t, err, ErrInvoiceNotReady)

	require.NoError(t, disk.Put(ctx, jobs.InvoicePath(order.ID), []byte("<h1>Invoice</h1>"), "text/html"))
	require.NoError(t, e.orderDB.SetInvoiceURL(ctx, order.ID, "http://api.test/api/orders/"+order.ID+"/invoice"))

	// a warm cache must not open the invoice to other users
	_, _, err = e.orders.Get(ctx, ann, order.ID)
	require.NoError(t, err)
	_, err = e.orders.Invoice(ctx, bob, order.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	for _, who := range []auth.Identity{ann, admin} {
		body, err := e.orders.Invoice(ctx, who, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "<h1>Invoice</h1>", string(body))
	}

	_, err = e.orders.Invoice(ctx, ann, "not-a-uuid")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
