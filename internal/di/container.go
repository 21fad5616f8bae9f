package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshcatch/api/internal/platform/config"
	"github.com/freshcatch/api/internal/repositories"
	"github.com/freshcatch/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog   services.CatalogService
	Cart      services.CartService
	Links     services.OrderLinkService
	Checkout  services.CheckoutService
	Orders    services.OrderService
	Customers services.CustomerService
	Counters  services.CounterService
	System    services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises container assembly.
type Option func(*containerOptions)

type containerOptions struct {
	publisher services.NotificationPublisher
	logger    func(ctx context.Context, event string, fields map[string]any)
	build     services.BuildInfo
}

// WithNotificationPublisher injects the Pub/Sub publisher used by checkout.
// Without one, orders are still accepted but no notification is emitted.
func WithNotificationPublisher(publisher services.NotificationPublisher) Option {
	return func(o *containerOptions) {
		o.publisher = publisher
	}
}

// WithServiceLogger routes service-level events to the application logger.
func WithServiceLogger(logger func(ctx context.Context, event string, fields map[string]any)) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithBuildInfo records build metadata surfaced by health endpoints.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = build
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides the Firestore
// registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	options := containerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	svc, err := buildServices(cfg, reg, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, options containerOptions) (Services, error) {
	var svc Services

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}
	svc.Counters = counterSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:      reg.Products(),
		PackagePrices: reg.PackagePrices(),
		Packages:      reg.PricingPackages(),
		Clock:         time.Now,
		Logger:        options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	customerSvc, err := services.NewCustomerService(services.CustomerServiceDeps{
		Repository: reg.Customers(),
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build customer service: %w", err)
	}
	svc.Customers = customerSvc

	linkSvc, err := services.NewOrderLinkService(services.OrderLinkServiceDeps{
		Repository: reg.OrderLinks(),
		Customers:  customerSvc,
		Clock:      time.Now,
		Logger:     options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order link service: %w", err)
	}
	svc.Links = linkSvc

	engine, err := services.NewOrderSummaryEngine(services.OrderSummaryEngineDeps{})
	if err != nil {
		return Services{}, fmt.Errorf("build order summary engine: %w", err)
	}

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Catalog:    catalogSvc,
		Engine:     engine,
		Clock:      time.Now,
		Logger:     options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	publisher := options.publisher
	if !cfg.Features.EnableNotifications {
		publisher = nil
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Links:     linkSvc,
		Carts:     cartSvc,
		Orders:    reg.Orders(),
		Numbers:   counterSvc,
		Publisher: publisher,
		Clock:     time.Now,
		Logger:    options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: reg.Orders(),
		Clock:  time.Now,
		Logger: options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	build := options.build
	if build.Environment == "" {
		build.Environment = cfg.Security.Environment
	}
	if build.StartedAt.IsZero() {
		build.StartedAt = time.Now().UTC()
	}

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            time.Now,
		Build:            build,
		Counters:         counterSvc,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}
