package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// CursorPage is a generic page of results along with the continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Product is a sellable catalog entry. Prices are quoted per kilogram, one
// column per pricing tier. PriceBronze is a pointer because bronze pricing is
// a negotiated override most products do not carry; nil means "no bronze
// price", while zero is a legitimate price.
type Product struct {
	ID            string
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
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PackagePrice overrides some or all price columns of one product for a named
// pricing package. Unset pointer fields fall back to the default catalog
// product's columns when the package catalog is resolved.
type PackagePrice struct {
	ID            string
	PackageID     string
	ProductID     string
	PriceBronze   *float64
	PriceSilver   *float64
	PriceGold     *float64
	PricePlatinum *float64
	PriceDiamond  *float64
	UpdatedAt     time.Time
}

// PricingPackage is a named customer-specific price book layered over the
// default catalog.
type PricingPackage struct {
	ID          string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLine is one product/quantity pair in an in-progress order. ProductID is
// a weak reference; a line whose product has left the active catalog is
// excluded from pricing but still weighs into the order total.
type CartLine struct {
	ProductID string
	Quantity  float64
	AddedAt   time.Time
}

// Cart is a persisted in-progress order, keyed by the order link token that
// opened the session.
type Cart struct {
	ID         string
	CustomerID string
	LinkToken  string
	Lines      []CartLine
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Customer is a wholesale buyer record maintained by the back office.
type Customer struct {
	ID                string
	Name              string
	Phone             string
	Email             string
	Place             string
	PreferredLanguage string
	PricingPackageID  string
	BronzeTierEnabled bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderLink is a single-use guest checkout token issued to a customer. The
// raw token string doubles as the document key.
type OrderLink struct {
	Token             string
	CustomerID        string
	PricingPackageID  string
	BronzeTierEnabled bool
	IsActive          bool
	IsUsed            bool
	ExpiresAt         time.Time
	CreatedAt         time.Time
	UsedAt            *time.Time
}

// OrderStatus tracks an order through fulfilment.
type OrderStatus string

const (
	// OrderStatusPending marks a freshly submitted order awaiting confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed marks an order accepted by the back office.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusDelivered marks a fulfilled order.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled marks an order cancelled before delivery.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidStatus reports whether the status is one of the defined constants.
func (s OrderStatus) ValidStatus() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderContact carries the raw contact fields captured at checkout.
type OrderContact struct {
	Name  string
	Phone string
	Place string
	Notes string
}

// Health status values reported by dependency probes.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusError    = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// Order is a submitted order with its priced summary frozen at submission
// time.
type Order struct {
	ID          string
	Number      string
	CustomerID  string
	LinkToken   string
	Status      OrderStatus
	Contact     OrderContact
	Summary     OrderSummary
	SubmittedAt time.Time
	UpdatedAt   time.Time
}
