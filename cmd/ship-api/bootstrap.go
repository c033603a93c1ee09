package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ShipDesk/config"
	shipdeskapi "github.com/BearBump/ShipDesk/internal/api/shipdesk_api"
	"github.com/BearBump/ShipDesk/internal/auth"
	"github.com/BearBump/ShipDesk/internal/broker/kafka"
	"github.com/BearBump/ShipDesk/internal/cache/rediscache"
	"github.com/BearBump/ShipDesk/internal/keylock"
	"github.com/BearBump/ShipDesk/internal/realtime"
	"github.com/BearBump/ShipDesk/internal/services/chats"
	"github.com/BearBump/ShipDesk/internal/services/escrow"
	"github.com/BearBump/ShipDesk/internal/services/feed"
	"github.com/BearBump/ShipDesk/internal/services/history"
	"github.com/BearBump/ShipDesk/internal/services/notify"
	"github.com/BearBump/ShipDesk/internal/services/shipments"
	"github.com/BearBump/ShipDesk/internal/storage/memstore"
	"github.com/BearBump/ShipDesk/internal/storage/pgstore"
)

const (
	storageDriverPostgres = "postgres"
	storageDriverMemory   = "memory"
)

// documentStore: всё, что нужно обоим сервисам от хранилища.
type documentStore interface {
	shipments.Repository
	chats.Repository
}

type shipAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   shipAPIOpts
	api    *shipdeskapi.API
	feed   *feed.Feed

	closers []func()
}

func mustBootstrapShipAPI() *shipAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	app, err := bootstrapShipAPI(cfg, swaggerPath, defaultFactories())
	if err != nil {
		panic(err)
	}
	return app
}

type factories struct {
	openPostgres func(connString string) (*pgstore.Storage, error)
}

func defaultFactories() factories {
	return factories{
		openPostgres: func(connString string) (*pgstore.Storage, error) {
			return openPostgresWithRetry(connString, 60*time.Second)
		},
	}
}

func bootstrapShipAPI(cfg *config.Config, swaggerPath string, f factories) (*shipAPIApp, error) {
	logger := slog.Default()

	httpAddr := cfg.ShipDesk.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ShipDesk.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "ship-api"
	}
	updatedTopic := cfg.Kafka.ShipmentUpdatedTopicName
	if updatedTopic == "" {
		updatedTopic = "shipment.updated"
	}
	reportedTopic := cfg.Kafka.StatusReportedTopicName
	if reportedTopic == "" {
		reportedTopic = "shipment.status_reported"
	}
	chatLimit := int64(cfg.ShipDesk.ChatRateLimitPerMinute)
	if chatLimit <= 0 {
		chatLimit = 30
	}
	watermarkTTL := time.Duration(cfg.ShipDesk.WatermarkTTLSeconds) * time.Second
	if watermarkTTL <= 0 {
		watermarkTTL = 30 * 24 * time.Hour
	}
	shutdownTimeout := time.Duration(cfg.ShipDesk.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	jwtSecret := cfg.ShipDesk.JWTSecret
	if jwtSecret == "" {
		return nil, fmt.Errorf("shipdesk.jwt_secret is required")
	}
	driver := cfg.ShipDesk.StorageDriver
	if driver == "" {
		driver = storageDriverPostgres
	}

	app := &shipAPIApp{}
	var (
		store documentStore
		marks chats.WatermarkStore
		rl    chats.RateLimiter
	)
	switch driver {
	case storageDriverMemory:
		store = memstore.New()
		marks = memstore.NewWatermarks()
	case storageDriverPostgres:
		sslMode := cfg.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
		st, err := f.openPostgres(connString)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, st.Close)
		store = st

		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		wm := rediscache.NewWatermarks(redisAddr, watermarkTTL)
		limiter := rediscache.NewRateLimiter(redisAddr)
		app.closers = append(app.closers, func() { _ = wm.Close() }, func() { _ = limiter.Close() })
		marks, rl = wm, limiter
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	app.closers = append(app.closers, func() { _ = producer.Close() })
	notifier := notify.New(producer, updatedTopic, logger)

	journal := history.NewJournal(nil)
	machine := escrow.New(journal, nil, escrow.NewCode)
	locks := keylock.New()
	hub := realtime.NewHub(logger).WithAllowedOrigins(cfg.ShipDesk.WSAllowedOrigins...)
	app.closers = append(app.closers, hub.Close)

	shipSvc := shipments.New(store, locks, journal, machine).
		WithNotifier(notifier).
		WithBroadcaster(hub).
		WithLogger(logger)
	chatSvc := chats.New(store, marks, locks, machine).
		WithNotifier(notifier).
		WithBroadcaster(hub).
		WithLogger(logger)
	if rl != nil {
		chatSvc = chatSvc.WithRateLimit(rl, chatLimit)
	}

	tokens := auth.NewJWTService(jwtSecret, 24*time.Hour)
	app.api = shipdeskapi.New(shipSvc, chatSvc, tokens, hub, logger)

	if !cfg.Kafka.DisableStatusReportConsume {
		consumer := kafka.NewConsumer(brokers, reportedTopic, consumerGroup)
		app.closers = append(app.closers, func() { _ = consumer.Close() })
		app.feed = feed.New(shipSvc, consumer, reportedTopic).WithLogger(logger)
	}

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.opts = shipAPIOpts{
		httpAddr:        httpAddr,
		swaggerPath:     swaggerPath,
		shutdownTimeout: shutdownTimeout,
		topic:           reportedTopic,
		consumerGroup:   consumerGroup,
	}
	return app, nil
}

func openPostgresWithRetry(connString string, wait time.Duration) (*pgstore.Storage, error) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgstore.New(connString)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	return nil, fmt.Errorf("postgres is not ready after %s: %w", wait, lastErr)
}

func (a *shipAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *shipAPIApp) Run() error {
	var sf statusFeed
	if a.feed != nil {
		sf = a.feed
	}
	return runShipAPI(a.ctx, a.opts, a.api, sf)
}
