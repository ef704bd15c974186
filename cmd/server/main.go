// Package main is the entry point for the API server. It loads the
// configuration, opens the store and the cache, wires the services and
// serves HTTP until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casamento/internal/config"
	"casamento/internal/logger"
	"casamento/internal/metrics"
	"casamento/internal/middleware"
	"casamento/internal/repositories"
	"casamento/internal/repositories/backend"
	"casamento/internal/repositories/cache"
	"casamento/internal/routes"
	"casamento/internal/services/auth"
	"casamento/internal/services/catalog"
	"casamento/internal/services/expiry"
	"casamento/internal/services/gateway"
	"casamento/internal/services/guestbook"
	"casamento/internal/services/media"
	"casamento/internal/services/payment"
	"casamento/internal/services/rsvp"
	"casamento/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 15 * time.Second
	bodyLimit       = 10 * 1024 * 1024
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	log := logger.For("casamento-api", config.IsProduction())
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if store.Close == nil {
			return
		}
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	appCache, closeCache := openCache(ctx, cfg, log)
	defer closeCache()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheus(reg)

	if cfg.Gateway.AccessToken == "" {
		log.Warn("MP_ACCESS_TOKEN is empty, payment creation will fail")
	}
	gw, err := gateway.NewClient(cfg.Gateway, collector, log.Named("gateway"))
	if err != nil {
		return err
	}

	uploader, err := media.NewUploader(cfg.Cloudinary)
	if err != nil {
		return err
	}

	catalogSvc := catalog.NewService(store.Presents, appCache, uploader, cfg.Payment.CatalogCacheTTL, collector, log.Named("catalog"))
	paymentSvc := payment.NewService(store.Presents, store.Payments, gw, appCache, catalogSvc, payment.Config{
		TTL:                  cfg.Payment.TTL,
		PayerFallbackEmail:   cfg.Gateway.PayerFallbackEmail,
		NotificationURL:      cfg.Gateway.NotificationURL,
		RetryMaxAttempts:     cfg.Payment.RetryMaxAttempts,
		RetryInitialInterval: cfg.Payment.RetryInitialInterval,
	}, collector, log.Named("payment"))
	webhookSvc := webhook.NewService(store.Presents, store.Payments, gw, appCache, catalogSvc, webhook.Config{
		RetryMaxAttempts:     cfg.Payment.RetryMaxAttempts,
		RetryInitialInterval: cfg.Payment.RetryInitialInterval,
	}, collector, log.Named("webhook"))
	sweeper := expiry.NewSweeper(store.Presents, store.Payments, webhookSvc, paymentSvc, catalogSvc, expiry.Config{
		Interval:  cfg.Payment.SweepInterval,
		PollAfter: cfg.Payment.PollAfter,
	}, collector, log.Named("sweeper"))

	app := fiber.New(fiber.Config{
		AppName:   "casamento-api",
		BodyLimit: bodyLimit,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(middleware.CORS(cfg.CORSAllowedOrigins, cfg.CORSPreviewPrefix))

	routes.SetupRoutes(app, routes.Dependencies{
		Store:            store,
		Cache:            appCache,
		Payments:         paymentSvc,
		Webhooks:         webhookSvc,
		Catalog:          catalogSvc,
		RSVP:             rsvp.NewService(store.Invites, log.Named("rsvp")),
		Guestbook:        guestbook.NewService(store.Messages, log.Named("guestbook")),
		Auth:             auth.NewService(cfg.AdminPasswordHash, cfg.JWTSecret, auth.DefaultTokenTTL, log.Named("auth")),
		Sweeper:          sweeper,
		Metrics:          promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		JWTSecret:        cfg.JWTSecret,
		WebhookSecret:    cfg.Gateway.WebhookSecret,
		WebhookTolerance: cfg.Gateway.WebhookTolerance,
		RateLimit:        true,
		Logger:           log.Named("http"),
	})

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(sweepCtx)
	}()

	listenErr := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", store.Driver),
			zap.Bool("redis", cfg.Redis.Enabled()),
		)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		stopSweeper()
		<-sweepDone
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
	stopSweeper()
	<-sweepDone
	return nil
}

// openCache connects to Redis when configured. Without Redis the catalog is
// read straight from the store and deferred linkages are only logged.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (repositories.Cache, func()) {
	if !cfg.Redis.Enabled() {
		log.Warn("REDIS_HOST not set, running without cache")
		return cache.Noop{}, func() {}
	}

	svc := cache.NewCacheService(cache.NewRedisClient(cfg.Redis), cfg.Payment.CatalogCacheTTL)
	if err := svc.HealthCheck(ctx); err != nil {
		log.Warn("redis unreachable at startup, continuing", zap.Error(err))
	} else {
		log.Info("connected to redis", zap.String("host", cfg.Redis.Host))
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
	}
}
