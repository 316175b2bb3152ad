package app

import (
	"context"
	"time"

	"github.com/shashiranjanraj/ordersvc/app/jobs"
	"github.com/shashiranjanraj/ordersvc/config"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/notification"
	"github.com/shashiranjanraj/ordersvc/pkg/queue"
	"github.com/shashiranjanraj/ordersvc/pkg/schedule"
	"github.com/shashiranjanraj/ordersvc/pkg/storage"
)

const sweepInterval = time.Minute

// Worker returns a queue worker with every job handler registered. nil or
// empty queues means jobs.Queues.
func (a *App) Worker(queues []string) *queue.Worker {
	if len(queues) == 0 {
		queues = jobs.Queues
	}

	w := queue.NewWorker(a.Queue, queues,
		queue.WithMaxRetry(config.QueueMaxRetries()),
		queue.WithMarker(queue.NewCacheMarker(a.Cache, queue.DefaultMarkerTTL)),
		queue.WithFailureRecorder(a.FailedJobs),
	)

	notifier := notification.New(a.Mailer, config.OrderWebhookURL())
	handlers := jobs.New(a.Orders, a.Users, notifier, a.Disk)
	if _, local := a.Disk.(*storage.LocalDisk); local {
		// local files are only readable through the authenticated API
		handlers.LinkInvoices(InvoiceLink)
	}
	handlers.Register(w)
	return w
}

// InvoiceLink is the API location of an order's invoice.
func InvoiceLink(orderID string) string {
	return config.AppURL() + "/api/orders/" + orderID + "/invoice"
}

// Scheduler returns the maintenance tasks run by serve: sweeping the
// in-process cache and, when QUEUE_RETRY_CRON is set, replaying failed_jobs.
func (a *App) Scheduler() (*schedule.Scheduler, error) {
	s := schedule.New()

	if m, ok := a.Cache.(interface{ Sweep() int }); ok {
		err := s.Every(sweepInterval).Name("cache:sweep").Run(func(context.Context) error {
			if n := m.Sweep(); n > 0 {
				logger.Debug("cache: swept expired entries", "count", n)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if expr := config.QueueRetrySchedule(); expr != "" {
		err := s.Cron(expr).Name("queue:retry").WithoutOverlapping().Run(func(ctx context.Context) error {
			n, err := a.FailedJobs.Retry(ctx, a.Dispatcher)
			if n > 0 {
				logger.Info("queue: replayed failed jobs", "count", n)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}
