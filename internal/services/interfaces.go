package services

import (
	"context"
	"time"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	Product            = domain.Product
	PackagePrice       = domain.PackagePrice
	PricingPackage     = domain.PricingPackage
	Cart               = domain.Cart
	CartLine           = domain.CartLine
	Customer           = domain.Customer
	OrderLink          = domain.OrderLink
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	OrderContact       = domain.OrderContact
	OrderSummary       = domain.OrderSummary
	PricedLine         = domain.PricedLine
	PricingTier        = domain.PricingTier
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService resolves the product catalog a customer actually sees: the
// default price book, or the default with a pricing package layered on top.
// It also carries the admin-facing catalog maintenance operations.
type CatalogService interface {
	ResolveCatalog(ctx context.Context, pricingPackageID string) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error)
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	ArchiveProduct(ctx context.Context, productID string) error
	CreatePackage(ctx context.Context, cmd UpsertPackageCommand) (PricingPackage, error)
	UpdatePackage(ctx context.Context, cmd UpsertPackageCommand) (PricingPackage, error)
	ListPackages(ctx context.Context, pager Pagination) (domain.CursorPage[PricingPackage], error)
	UpsertPackagePrice(ctx context.Context, cmd UpsertPackagePriceCommand) (PackagePrice, error)
	DeletePackagePrice(ctx context.Context, priceID string) error
}

// CartService manages the mutable cart for one order-link session and quotes
// the priced summary. The per-line minimum weight is enforced here, at the
// mutation boundary, so the summary engine can trust its inputs.
type CartService interface {
	GetOrCreateCart(ctx context.Context, session LinkSession) (Cart, error)
	SetLine(ctx context.Context, cmd SetCartLineCommand) (Cart, error)
	RemoveLine(ctx context.Context, cmd RemoveCartLineCommand) (Cart, error)
	ClearCart(ctx context.Context, session LinkSession) error
	Quote(ctx context.Context, session LinkSession) (CartQuote, error)
}

// OrderLinkService issues and validates single-use guest checkout tokens.
type OrderLinkService interface {
	Issue(ctx context.Context, cmd IssueOrderLinkCommand) (OrderLink, error)
	Validate(ctx context.Context, token string) (LinkSession, error)
	MarkUsed(ctx context.Context, token string) (OrderLink, error)
	Deactivate(ctx context.Context, token string) (OrderLink, error)
	ListByCustomer(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[OrderLink], error)
}

// CheckoutService recomputes the summary server side, applies the minimum
// weight gate, and turns an eligible cart into a persisted order.
type CheckoutService interface {
	Quote(ctx context.Context, token string) (CheckoutQuote, error)
	Submit(ctx context.Context, cmd SubmitOrderCommand) (Order, error)
}

// OrderService exposes submitted orders to the back office.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
}

// CustomerService maintains wholesale buyer records.
type CustomerService interface {
	CreateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, error)
	UpdateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, error)
	GetCustomer(ctx context.Context, customerID string) (Customer, error)
	ListCustomers(ctx context.Context, pager Pagination) (domain.CursorPage[Customer], error)
}

// CounterService hands out gap-tolerant sequence values for order numbering.
type CounterService interface {
	Next(ctx context.Context, scope, name string, opts CounterGenerationOptions) (CounterValue, error)
	NextOrderNumber(ctx context.Context) (string, error)
}

// CounterValue carries the raw and formatted result of a counter increment.
type CounterValue struct {
	Value     int64
	Formatted string
}

// CounterGenerationOptions controls how counter values are incremented and formatted.
type CounterGenerationOptions struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
	Prefix       string
	Suffix       string
	PadLength    int
	Formatter    func(now time.Time, value int64) string
}

// NotificationPublisher hands submitted orders to the out-of-process delivery
// pipeline (email/WhatsApp workers consume the topic).
type NotificationPublisher interface {
	PublishOrderSubmitted(ctx context.Context, message OrderSubmittedMessage) (string, error)
}

// SystemService aggregates utility endpoints (health checks, counters).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	NextCounterValue(ctx context.Context, cmd CounterCommand) (int64, error)
}

// Command and DTO definitions ------------------------------------------------

// LinkSession is the validated view of an order link, carried through guest
// cart and checkout flows instead of the raw token document.
type LinkSession struct {
	Token             string
	CustomerID        string
	PricingPackageID  string
	BronzeTierEnabled bool
}

type SetCartLineCommand struct {
	Session   LinkSession
	ProductID string
	Quantity  float64
}

type RemoveCartLineCommand struct {
	Session   LinkSession
	ProductID string
}

// CartQuote pairs the cart with its freshly computed summary and the checkout
// gate verdict so every surface renders from one consistent result.
type CartQuote struct {
	Cart             Cart
	Summary          OrderSummary
	CheckoutEligible bool
	MinOrderWeightKg float64
}

type IssueOrderLinkCommand struct {
	CustomerID        string
	PricingPackageID  string
	BronzeTierEnabled bool
	TTL               time.Duration
}

type CheckoutQuote struct {
	Session          LinkSession
	Summary          OrderSummary
	CheckoutEligible bool
	MinOrderWeightKg float64
}

type SubmitOrderCommand struct {
	Token   string
	Contact OrderContact
}

type OrderListFilter = repositories.OrderListFilter

type ProductListFilter = repositories.ProductListFilter

type OrderStatusTransitionCommand struct {
	OrderID string
	Status  OrderStatus
	ActorID string
}

type UpsertProductCommand struct {
	ProductID     *string
	Code          string
	EnglishName   string
	MalayalamName string
	Preparation   string
	Packaging     string
	SizeSpec      string
	Description   string
	ImagePath     string
	PriceBronze   *float64
	PriceSilver   float64
	PriceGold     float64
	PricePlatinum float64
	PriceDiamond  float64
}

type UpsertPackageCommand struct {
	PackageID   *string
	Name        string
	Description string
	Active      *bool
}

type UpsertPackagePriceCommand struct {
	PriceID       *string
	PackageID     string
	ProductID     string
	PriceBronze   *float64
	PriceSilver   *float64
	PriceGold     *float64
	PricePlatinum *float64
	PriceDiamond  *float64
}

type UpsertCustomerCommand struct {
	CustomerID        *string
	Name              string
	Phone             string
	Email             string
	Place             string
	PreferredLanguage string
	PricingPackageID  string
	BronzeTierEnabled *bool
}

type CounterCommand struct {
	Scope string
	Name  string
	Step  int64
}

// OrderSubmittedMessage is the payload published when a checkout completes.
type OrderSubmittedMessage struct {
	OrderID        string  `json:"orderId"`
	OrderNumber    string  `json:"orderNumber"`
	CustomerID     string  `json:"customerId"`
	CustomerName   string  `json:"customerName"`
	CustomerPhone  string  `json:"customerPhone"`
	TotalWeightKg  float64 `json:"totalWeightKg"`
	Subtotal       float64 `json:"subtotal"`
	Tier           string  `json:"tier"`
	SubmittedAt    string  `json:"submittedAt"`
	IdempotencyKey string  `json:"idempotencyKey,omitempty"`
}
