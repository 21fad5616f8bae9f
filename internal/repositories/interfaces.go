package repositories

import (
	"context"
	"time"

	domain "github.com/freshcatch/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	PackagePrices() PackagePriceRepository
	PricingPackages() PricingPackageRepository
	Carts() CartRepository
	OrderLinks() OrderLinkRepository
	Customers() CustomerRepository
	Orders() OrderRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository stores the default catalog.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Archive(ctx context.Context, productID string, archivedAt time.Time) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	ListActive(ctx context.Context) ([]domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// PackagePriceRepository stores per-package price overrides keyed by package and product.
type PackagePriceRepository interface {
	Upsert(ctx context.Context, price domain.PackagePrice) (domain.PackagePrice, error)
	Delete(ctx context.Context, priceID string) error
	ListByPackage(ctx context.Context, packageID string) ([]domain.PackagePrice, error)
}

// PricingPackageRepository stores named price books.
type PricingPackageRepository interface {
	Insert(ctx context.Context, pkg domain.PricingPackage) error
	Update(ctx context.Context, pkg domain.PricingPackage) error
	FindByID(ctx context.Context, packageID string) (domain.PricingPackage, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.PricingPackage], error)
}

// CartRepository owns cart persistence with optimistic locking guarantees.
type CartRepository interface {
	UpsertCart(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error)
	GetCart(ctx context.Context, linkToken string) (domain.Cart, error)
	ReplaceLines(ctx context.Context, linkToken string, lines []domain.CartLine) (domain.Cart, error)
}

// OrderLinkRepository stores guest checkout tokens and their lifecycle flags.
type OrderLinkRepository interface {
	Insert(ctx context.Context, link domain.OrderLink) error
	FindByToken(ctx context.Context, token string) (domain.OrderLink, error)
	MarkUsed(ctx context.Context, token string, usedAt time.Time) (domain.OrderLink, error)
	Deactivate(ctx context.Context, token string) (domain.OrderLink, error)
	ListByCustomer(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.OrderLink], error)
}

// CustomerRepository stores wholesale buyer records.
type CustomerRepository interface {
	Insert(ctx context.Context, customer domain.Customer) error
	Update(ctx context.Context, customer domain.Customer) error
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error)
}

// OrderRepository persists submitted orders and provides query helpers for the back office.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type ProductListFilter struct {
	ActiveOnly bool
	Code       string
	Pagination domain.Pagination
}

type OrderListFilter struct {
	CustomerID string
	Status     []string
	Pagination domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
