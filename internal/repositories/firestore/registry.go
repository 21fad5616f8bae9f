package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/freshcatch/api/internal/platform/firestore"
	"github.com/freshcatch/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry interface for dependency injection.
type Registry struct {
	provider *pfirestore.Provider

	products        *ProductRepository
	packagePrices   *PackagePriceRepository
	pricingPackages *PricingPackageRepository
	carts           *CartRepository
	orderLinks      *OrderLinkRepository
	customers       *CustomerRepository
	orders          *OrderRepository
	counters        *CounterRepository
	health          repositories.HealthRepository
}

// NewRegistry wires every repository against the shared Firestore provider.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	packagePrices, err := NewPackagePriceRepository(provider)
	if err != nil {
		return nil, err
	}
	pricingPackages, err := NewPricingPackageRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orderLinks, err := NewOrderLinkRepository(provider)
	if err != nil {
		return nil, err
	}
	customers, err := NewCustomerRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:        provider,
		products:        products,
		packagePrices:   packagePrices,
		pricingPackages: pricingPackages,
		carts:           carts,
		orderLinks:      orderLinks,
		customers:       customers,
		orders:          orders,
		counters:        counters,
		health:          health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Products() repositories.ProductRepository { return r.products }

func (r *Registry) PackagePrices() repositories.PackagePriceRepository { return r.packagePrices }

func (r *Registry) PricingPackages() repositories.PricingPackageRepository {
	return r.pricingPackages
}

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) OrderLinks() repositories.OrderLinkRepository { return r.orderLinks }

func (r *Registry) Customers() repositories.CustomerRepository { return r.customers }

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn inside a Firestore transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		return fn(ctx)
	})
}

var _ repositories.Registry = (*Registry)(nil)
