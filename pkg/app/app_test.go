package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/ordersvc/app/repositories"
	"github.com/shashiranjanraj/ordersvc/app/requests"
	"github.com/shashiranjanraj/ordersvc/app/services"
	"github.com/shashiranjanraj/ordersvc/config"
	"github.com/shashiranjanraj/ordersvc/internal/testdb"
	"github.com/shashiranjanraj/ordersvc/pkg/auth"
	"github.com/shashiranjanraj/ordersvc/pkg/cache"
	outbound "github.com/shashiranjanraj/ordersvc/pkg/http"
	"github.com/shashiranjanraj/ordersvc/pkg/mail"
	"github.com/shashiranjanraj/ordersvc/pkg/queue"
	"github.com/shashiranjanraj/ordersvc/pkg/storage"
	"github.com/shashiranjanraj/ordersvc/pkg/testkit"
)

// newTestApp wires the same graph Boot does, over sqlite in memory and the
// in-process cache, queue and mailer.
func newTestApp(t *testing.T) (*App, *mail.LogMailer) {
	t.Helper()
	config.Set("RATE_LIMIT_RPS", "0")

	db := testdb.Open(t)
	disk, err := storage.NewLocalDisk(t.TempDir(), "http://files.test")
	require.NoError(t, err)
	mailer := mail.NewLogMailer(nil)

	a := &App{
		DB:     db,
		Cache:  cache.NewMemoryStore(),
		Queue:  queue.NewMemoryDriver(),
		Tokens: auth.NewTokenService("test-secret", 0),
		Disk:   disk,
		Mailer: mailer,
	}
	a.FailedJobs = queue.NewFailedJobStore(db)
	a.Dispatcher = queue.NewDispatcher(a.Queue, a.FailedJobs)
	a.Users = repositories.NewUserRepository(db)
	a.Orders = repositories.NewOrderRepository(db)
	a.AuthService = services.NewAuthService(a.Users, a.Tokens)
	a.OrderService = services.NewOrderService(a.Orders, a.Users, a.Cache, a.Dispatcher, services.OrderOptions{Invoices: disk})
	return a, mailer
}

func TestAPIScenarios(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := testkit.NewRunner(a.Router(ctx).Handler())
	r.RunFile(t, "testdata/orders.json")

	require.NotEmpty(t, r.Var("orderId"))
	assert.Equal(t, 2, a.Queue.(*queue.MemoryDriver).Len("emailQueue")+a.Queue.(*queue.MemoryDriver).Len("invoiceQueue"),
		"creating the order enqueued the email and invoice jobs")
}

func TestWorkerHandlesPlacedOrder(t *testing.T) {
	a, mailer := newTestApp(t)
	config.Set("ORDER_WEBHOOK_URL", "https://hooks.test/orders")
	config.Set("APP_URL", "http://api.test/")
	defer config.Set("ORDER_WEBHOOK_URL", "")
	defer config.Set("APP_URL", "")

	mt := testkit.NewMockTransport(&testkit.Scenario{
		NetUtilMockStep: []testkit.MockStep{{Method: "httprequest", IsMock: true, MatchURL: "https://hooks.test/"}},
	})
	outbound.DefaultClient.Transport = mt
	defer outbound.ResetTransport()

	ctx := context.Background()
	reg, err := a.AuthService.Register(ctx, requests.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	price, qty := 9.99, 2.0
	order, err := a.OrderService.Create(ctx, auth.Identity{UserID: reg.User.ID, Role: reg.User.Role}, requests.CreateOrderRequest{
		Items: []requests.ItemInput{{ItemID: "w-1", Name: "Widget", Price: &price, Quantity: &qty}},
		ShippingAddress: &requests.AddressInput{
			FullName: "Ann Lee", Phone: "555-0100", AddressLine1: "1 Main St",
			City: "Springfield", State: "IL", Country: "US", PostalCode: "62701",
		},
	})
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = a.Worker(nil).Run(runCtx, 2)
	}()
	defer func() {
		stop()
		wg.Wait()
	}()

	require.Eventually(t, func() bool {
		stored, err := a.Orders.FindByID(ctx, order.ID)
		return err == nil && stored.InvoiceURL != nil && len(mailer.Sent()) == 1 && len(mt.Calls()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	stored, err := a.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/api/orders/"+order.ID+"/invoice", *stored.InvoiceURL)

	body, err := a.OrderService.Invoice(ctx, auth.Identity{UserID: reg.User.ID, Role: reg.User.Role}, order.ID)
	require.NoError(t, err)
	assert.Contains(t, string(body), order.ID)
	assert.Equal(t, []string{"ann@example.com"}, mailer.Sent()[0].To)

	var hook map[string]any
	require.NoError(t, json.Unmarshal(mt.Calls()[0].Body, &hook))
	assert.Equal(t, "order.placed", hook["event"])
	assert.Empty(t, mt.AssertAllCalled())
}

func TestRoutesListsTheAPI(t *testing.T) {
	named := map[string]string{}
	for _, rt := range Routes() {
		if rt.Name != "" {
			named[rt.Name] = rt.Method + " " + rt.Path
		}
	}
	assert.Equal(t, map[string]string{
		"health":         "GET /api",
		"auth.register":  "POST /api/auth/register",
		"auth.login":     "POST /api/auth/login",
		"orders.store":   "POST /api/orders",
		"orders.index":   "GET /api/orders",
		"orders.show":    "GET /api/orders/{id}",
		"orders.status":  "PATCH /api/orders/{id}/status",
		"orders.invoice": "GET /api/orders/{id}/invoice",
	}, named)
}

func TestSchedulerEntries(t *testing.T) {
	a, _ := newTestApp(t)

	s, err := a.Scheduler()
	require.NoError(t, err)
	assert.Equal(t, []string{"cache:sweep  [every 1m0s]"}, s.List())

	config.Set("QUEUE_RETRY_CRON", "*/5 * * * *")
	defer config.Set("QUEUE_RETRY_CRON", "")
	s, err = a.Scheduler()
	require.NoError(t, err)
	assert.Equal(t, []string{"cache:sweep  [every 1m0s]", "queue:retry  [*/5 * * * *]"}, s.List())

	config.Set("QUEUE_RETRY_CRON", "every tuesday")
	_, err = a.Scheduler()
	assert.Error(t, err)
}
