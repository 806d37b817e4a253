package api

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	domain "github.com/Div1912/stylehub-backend/domain/user"
	"github.com/Div1912/stylehub-backend/modules/auth"
	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/order"
	"github.com/Div1912/stylehub-backend/modules/payment"
	"github.com/Div1912/stylehub-backend/pkg/metrics"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// bodyLimit leaves room for a full set of product images.
const bodyLimit = 30 << 20

// Config holds the HTTP server settings.
type Config struct {
	Addr                 string
	RequireVerifiedEmail bool
}

// APIModule is the HTTP API module.
type APIModule struct {
	cfg    Config
	logger *slog.Logger
	app    *fiber.App

	authPort    auth.AuthPort
	catalogPort catalog.CatalogPort
	orderPort   order.OrderPort
	paymentPort payment.PaymentPort
	media       MediaService

	generalLimit fiber.Handler
	authLimit    fiber.Handler
	idempotent   fiber.Handler
	metrics      *metrics.ServerMetrics
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// Option configures the module.
type Option func(*APIModule)

// WithMedia sets the image store used for uploads and signed links.
func WithMedia(svc MediaService) Option {
	return func(m *APIModule) {
		m.media = svc
	}
}

// WithRateLimits mounts the general limiter on every API route and the
// stricter one on /auth.
func WithRateLimits(general, authRoutes fiber.Handler) Option {
	return func(m *APIModule) {
		m.generalLimit = general
		m.authLimit = authRoutes
	}
}

// WithIdempotency mounts the Idempotency-Key middleware on order creation
// and payment callbacks.
func WithIdempotency(h fiber.Handler) Option {
	return func(m *APIModule) {
		m.idempotent = h
	}
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(sm *metrics.ServerMetrics) Option {
	return func(m *APIModule) {
		m.metrics = sm
	}
}

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger *slog.Logger, opts ...Option) *APIModule {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &APIModule{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "catalog", "order", "payment"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authPort = auth.NewAuthAdapter(container)
	case "catalog":
		m.catalogPort = catalog.NewCatalogAdapter(container)
	case "order":
		m.orderPort = order.NewOrderAdapter(container)
	case "payment":
		m.paymentPort = payment.NewPaymentAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	switch {
	case m.authPort == nil:
		return fmt.Errorf("auth dependency not set")
	case m.catalogPort == nil:
		return fmt.Errorf("catalog dependency not set")
	case m.orderPort == nil:
		return fmt.Errorf("order dependency not set")
	case m.paymentPort == nil:
		return fmt.Errorf("payment dependency not set")
	case m.media == nil:
		return fmt.Errorf("media service not set")
	}

	m.app = m.buildApp()

	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on %s", m.cfg.Addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.cfg.Addr,
		},
	}
}

func (m *APIModule) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler:          errorHandler(m.logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())
	if m.metrics != nil {
		app.Use(m.metrics.Middleware())
	}

	m.setupRoutes(app)
	return app
}

// setupRoutes configures all API routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	h := NewHandlers(m.authPort, m.catalogPort, m.orderPort, m.paymentPort, m.media, m.logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})
	if m.metrics != nil {
		app.Get("/metrics", m.metrics.Handler())
	}

	requireAuth := AuthMiddleware(m.authPort)
	staff := RequireRoles(domain.RoleSeller, domain.RoleAdmin)
	admins := RequireRoles(domain.RoleAdmin)
	idempotent := passIfNil(m.idempotent)

	v1 := app.Group("/api/v1", OptionalAuth(m.authPort), passIfNil(m.generalLimit))

	authRoutes := v1.Group("/auth", passIfNil(m.authLimit))
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Post("/refresh", h.Refresh)
	authRoutes.Post("/forgot-password", h.ForgotPassword)
	authRoutes.Post("/reset-password", h.ResetPassword)
	authRoutes.Get("/verify-email/:token", h.VerifyEmail)
	authRoutes.Get("/me", requireAuth, h.Me)

	products := v1.Group("/products")
	products.Get("/", h.ListProducts)
	products.Get("/:id", h.GetProduct)
	products.Post("/", requireAuth, staff, h.CreateProduct)
	products.Put("/:id", requireAuth, staff, h.UpdateProduct)
	products.Delete("/:id", requireAuth, staff, h.DeleteProduct)
	products.Post("/:id/reviews", requireAuth, h.AddReview)

	orders := v1.Group("/orders", requireAuth)
	orders.Post("/", RequireVerified(m.cfg.RequireVerifiedEmail), idempotent, h.CreateOrder)
	orders.Get("/", h.ListOrders)
	orders.Get("/:id", h.GetOrder)
	orders.Patch("/:id/status", staff, h.UpdateOrderStatus)
	orders.Put("/:id/status", staff, h.UpdateOrderStatus)
	orders.Post("/:id/cancel", h.CancelOrder)

	payments := v1.Group("/payments", requireAuth)
	payments.Post("/intent", h.CreateIntent)
	payments.Post("/success", idempotent, h.PaymentSuccess)
	payments.Post("/failure", idempotent, h.PaymentFailure)
	payments.Post("/refund", admins, idempotent, h.Refund)

	v1.Get("/media/*", h.ServeMedia)
}

func passIfNil(h fiber.Handler) fiber.Handler {
	if h != nil {
		return h
	}
	return func(c *fiber.Ctx) error {
		return c.Next()
	}
}
