// Package app is the composition root: it reads the configuration, opens
// every backing service once and wires the handles into the stores,
// services, HTTP kernel and queue worker.
//
//	a, err := app.Boot(ctx)
//	if err != nil { ... }
//	defer a.Close()
//	a.Serve(ctx)
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/app/repositories"
	"github.com/shashiranjanraj/ordersvc/app/services"
	"github.com/shashiranjanraj/ordersvc/config"
	"github.com/shashiranjanraj/ordersvc/pkg/auth"
	"github.com/shashiranjanraj/ordersvc/pkg/cache"
	"github.com/shashiranjanraj/ordersvc/pkg/database"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/mail"
	"github.com/shashiranjanraj/ordersvc/pkg/queue"
	"github.com/shashiranjanraj/ordersvc/pkg/storage"
)

type App struct {
	DB         *gorm.DB
	Cache      cache.Store
	Queue      queue.Driver
	Dispatcher *queue.Dispatcher
	FailedJobs *queue.FailedJobStore
	Tokens     *auth.TokenService
	Disk       storage.Disk
	Mailer     mail.Mailer

	Users        *repositories.UserRepository
	Orders       *repositories.OrderRepository
	AuthService  *services.AuthService
	OrderService *services.OrderService

	redis   *redis.Client
	closers []func() error
}

// Setup loads the configuration and installs the process logger. It is
// called by Boot and OpenDB and is safe to call more than once.
func Setup(ctx context.Context) (func() error, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	uri := config.LogMongoURI()
	if uri == "" {
		logger.Setup(config.AppEnv())
		return func() error { return nil }, nil
	}

	sink, err := logger.NewMongoSink(ctx, uri, "ordersvc", "logs", slog.LevelInfo)
	if err != nil {
		logger.Setup(config.AppEnv())
		logger.Warn("mongo log sink unavailable, logging to stdout only", "error", err)
		return func() error { return nil }, nil
	}
	logger.Setup(config.AppEnv(), sink)
	return func() error { sink.Close(); return nil }, nil
}

// OpenDB connects to the configured database only. Used by the migrate and
// seed commands.
func OpenDB(ctx context.Context) (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return database.Open(ctx, config.DatabaseDriver(), config.DatabaseDSN(), database.Options{})
}

// Boot opens every configured backend. On error, whatever was already
// opened is closed again.
func Boot(ctx context.Context) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	closeLog, err := Setup(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeLog)

	if a.DB, err = OpenDB(ctx); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return database.Close(a.DB) })

	if a.Cache, err = a.openCache(ctx); err != nil {
		return nil, err
	}
	if a.Queue, err = a.openQueue(ctx); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Queue.Close)

	a.FailedJobs = queue.NewFailedJobStore(a.DB)
	a.Dispatcher = queue.NewDispatcher(a.Queue, a.FailedJobs)
	a.Tokens = auth.NewTokenService(config.JWTSecret(), config.JWTExpiry())

	a.Disk, err = storage.Open(ctx, storage.Config{
		Driver:   config.StorageDefault(),
		Root:     config.StorageLocalRoot(),
		BaseURL:  config.StorageURL(),
		Bucket:   config.StorageS3Bucket(),
		Region:   config.StorageS3Region(),
		Key:      config.StorageS3Key(),
		Secret:   config.StorageS3Secret(),
		Endpoint: config.StorageS3Endpoint(),
		S3URL:    config.StorageS3URL(),
	})
	if err != nil {
		return nil, err
	}

	a.Mailer, err = mail.New(config.MailDriver(), mail.SMTP{
		Host:     config.MailHost(),
		Port:     config.MailPort(),
		Username: config.MailUsername(),
		Password: config.MailPassword(),
		From:     config.MailFrom(),
		FromName: config.MailFromName(),
	})
	if err != nil {
		return nil, err
	}

	a.Users = repositories.NewUserRepository(a.DB)
	a.Orders = repositories.NewOrderRepository(a.DB)
	a.AuthService = services.NewAuthService(a.Users, a.Tokens)
	a.OrderService = services.NewOrderService(a.Orders, a.Users, a.Cache, a.Dispatcher, services.OrderOptions{
		StrictOwnership:   config.CacheStrictOwnership(),
		StrictTransitions: config.OrderStrictTransitions(),
		MaxLimit:          config.PaginationMaxLimit(),
		Invoices:          a.Disk,
	})

	logger.Info("application booted",
		"env", config.AppEnv(),
		"db", config.DatabaseDriver(),
		"cache", config.CacheDriver(),
		"queue", config.QueueDriver(),
		"storage", config.StorageDefault(),
		"mail", config.MailDriver(),
	)
	return a, nil
}

// redisClient connects on first use; the cache and the redis queue driver
// share it.
func (a *App) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client, err := cache.Connect(ctx, config.RedisURL(), config.RedisAddr(), config.RedisPassword())
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *App) openCache(ctx context.Context) (cache.Store, error) {
	switch driver := config.CacheDriver(); driver {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("app: unsupported CACHE_DRIVER %q (supported: redis, memory)", driver)
	}
}

func (a *App) openQueue(ctx context.Context) (queue.Driver, error) {
	switch driver := config.QueueDriver(); driver {
	case "memory":
		return queue.NewMemoryDriver(), nil
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return queue.NewRedisDriver(client), nil
	case "amqp", "rabbitmq":
		d, err := queue.DialAMQP(config.AMQPURL(), config.QueueWorkers())
		if err != nil {
			return nil, err
		}
		return d, nil
	case "kafka":
		d, err := queue.NewKafkaDriver(config.KafkaBrokers())
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("app: unsupported QUEUE_DRIVER %q (supported: memory, redis, amqp, kafka)", driver)
	}
}

// Close releases everything Boot opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
