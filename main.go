package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/Div1912/stylehub-backend/config"
	"github.com/Div1912/stylehub-backend/domain/pricing"
	"github.com/Div1912/stylehub-backend/modules/api"
	"github.com/Div1912/stylehub-backend/modules/auth"
	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/idempotency"
	"github.com/Div1912/stylehub-backend/modules/media"
	"github.com/Div1912/stylehub-backend/modules/notification"
	"github.com/Div1912/stylehub-backend/modules/order"
	"github.com/Div1912/stylehub-backend/modules/payment"
	"github.com/Div1912/stylehub-backend/modules/ratelimit"
	"github.com/Div1912/stylehub-backend/modules/relay"
	"github.com/Div1912/stylehub-backend/pkg/database"
	"github.com/Div1912/stylehub-backend/pkg/metrics"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// mediaPath is where signed image links are served.
const mediaPath = "/api/v1/media"

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	log.Println("=== StyleHub Backend ===")
	log.Printf("HTTP Address: %s", cfg.HTTP.Addr)
	log.Printf("Database: %s", cfg.Database.Driver)

	db, err := database.Open(database.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.Bus.StorageDir),
		mono.WithNATSPort(cfg.Bus.NATSPort),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	calc := pricing.Calculator{
		TaxRate:               cfg.Pricing.TaxRate,
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		FlatShippingFee:       cfg.Pricing.FlatShippingFee,
		Discounts:             pricing.NoDiscount{},
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mediaModule := media.NewModule(cfg.Media, cfg.Auth.SecretKey, mediaPath)
	rateLimitModule := ratelimit.NewModule(rdb, cfg.RateLimit, logger)
	idempotencyModule := idempotency.NewModule(rdb, cfg.RateLimit.IdempotencyTTL, ratelimit.LocalsUserID, logger)
	apiModule := api.NewModule(
		api.Config{Addr: cfg.HTTP.Addr, RequireVerifiedEmail: cfg.Auth.RequireVerifiedEmail},
		logger,
		api.WithMedia(mediaModule),
		api.WithRateLimits(rateLimitModule.General(), rateLimitModule.Auth()),
		api.WithIdempotency(idempotencyModule.Middleware()),
		api.WithMetrics(metrics.NewServerMetrics("api", registry)),
	)

	// Order: providers first, then the modules that depend on them.
	app.Register(auth.NewModule(db, cfg.Auth))
	app.Register(catalog.NewModule(db))
	app.Register(payment.NewModule(cfg.Payment))
	app.Register(order.NewModule(db, calc))
	app.Register(mediaModule)
	app.Register(notification.NewModule(cfg.Mail, cfg.FrontendURL))
	if len(cfg.Kafka.Brokers) > 0 {
		app.Register(relay.NewModule(cfg.Kafka))
	}
	app.Register(rateLimitModule)
	app.Register(idempotencyModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
			"redis": func(context.Context) error {
				return rdb.Close()
			},
			"database": func(context.Context) error {
				return database.Close(db)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	if cfg.Payment.StripeSecretKey == "" {
		log.Println("  STRIPE_SECRET_KEY not set: only cash on delivery orders can be placed")
	}
	if cfg.Mail.Host == "" {
		log.Println("  SMTP_HOST not set: emails are written to the log")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Println("  KAFKA_BROKERS not set: order events are not relayed")
	}
	log.Println("")
	log.Printf("REST API Endpoints (%s):", cfg.HTTP.Addr)
	log.Println("")
	log.Println("  POST   /api/v1/auth/register|login|refresh|forgot-password|reset-password")
	log.Println("  GET    /api/v1/auth/verify-email/:token, /api/v1/auth/me")
	log.Println("  GET    /api/v1/products[/:id]        - Browse the catalog")
	log.Println("  POST   /api/v1/products              - Create a product (seller/admin)")
	log.Println("  PUT    /api/v1/products/:id          - Update a product (seller/admin)")
	log.Println("  DELETE /api/v1/products/:id          - Delete a product (seller/admin)")
	log.Println("  POST   /api/v1/products/:id/reviews  - Review a product")
	log.Println("  POST   /api/v1/orders                - Place an order")
	log.Println("  GET    /api/v1/orders[/:id]          - Your orders")
	log.Println("  PATCH  /api/v1/orders/:id/status     - Update order status (seller/admin)")
	log.Println("  POST   /api/v1/orders/:id/cancel     - Cancel an order")
	log.Println("  POST   /api/v1/payments/intent|success|failure|refund")
	log.Println("  GET    /api/v1/media/*?token=        - Signed image links")
	log.Println("  GET    /health, /metrics")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
