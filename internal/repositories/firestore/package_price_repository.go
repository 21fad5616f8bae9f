package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/freshcatch/api/internal/domain"
	pfirestore "github.com/freshcatch/api/internal/platform/firestore"
	"github.com/freshcatch/api/internal/repositories"
)

const packagePricesCollection = "packagePrices"

// PackagePriceRepository persists per-package price overrides.
type PackagePriceRepository struct {
	base *pfirestore.BaseRepository[packagePriceDocument]
}

// NewPackagePriceRepository constructs a Firestore-backed package price repository.
func NewPackagePriceRepository(provider *pfirestore.Provider) (*PackagePriceRepository, error) {
	if provider == nil {
		return nil, errors.New("package price repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[packagePriceDocument](provider, packagePricesCollection, nil, nil)
	return &PackagePriceRepository{base: base}, nil
}

// Upsert writes an override row. Each (package, product) pair keeps one document.
func (r *PackagePriceRepository) Upsert(ctx context.Context, price domain.PackagePrice) (domain.PackagePrice, error) {
	if r == nil || r.base == nil {
		return domain.PackagePrice{}, errors.New("package price repository not initialised")
	}
	priceID := strings.TrimSpace(price.ID)
	if priceID == "" {
		return domain.PackagePrice{}, errors.New("package price repository: price id is required")
	}
	if strings.TrimSpace(price.PackageID) == "" || strings.TrimSpace(price.ProductID) == "" {
		return domain.PackagePrice{}, errors.New("package price repository: package id and product id are required")
	}
	doc := encodePackagePriceDocument(price)
	result, err := r.base.Set(ctx, priceID, doc)
	if err != nil {
		return domain.PackagePrice{}, err
	}
	stored := decodePackagePriceDocument(priceID, doc)
	stored.UpdatedAt = result.UpdateTime
	return stored, nil
}

// Delete removes an override row.
func (r *PackagePriceRepository) Delete(ctx context.Context, priceID string) error {
	if r == nil || r.base == nil {
		return errors.New("package price repository not initialised")
	}
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return errors.New("package price repository: price id is required")
	}
	ref, err := r.base.DocumentRef(ctx, priceID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("packagePrices.delete", err)
	}
	return nil
}

// ListByPackage returns every override belonging to a package.
func (r *PackagePriceRepository) ListByPackage(ctx context.Context, packageID string) ([]domain.PackagePrice, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("package price repository not initialised")
	}
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return nil, errors.New("package price repository: package id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("packageId", "==", packageID)
	})
	if err != nil {
		return nil, err
	}
	prices := make([]domain.PackagePrice, 0, len(docs))
	for _, doc := range docs {
		price := decodePackagePriceDocument(doc.ID, doc.Data)
		if price.UpdatedAt.IsZero() {
			price.UpdatedAt = doc.UpdateTime
		}
		prices = append(prices, price)
	}
	return prices, nil
}

type packagePriceDocument struct {
	PackageID     string    `firestore:"packageId"`
	ProductID     string    `firestore:"productId"`
	PriceBronze   *float64  `firestore:"priceBronze,omitempty"`
	PriceSilver   *float64  `firestore:"priceSilver,omitempty"`
	PriceGold     *float64  `firestore:"priceGold,omitempty"`
	PricePlatinum *float64  `firestore:"pricePlatinum,omitempty"`
	PriceDiamond  *float64  `firestore:"priceDiamond,omitempty"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func encodePackagePriceDocument(price domain.PackagePrice) packagePriceDocument {
	return packagePriceDocument{
		PackageID:     strings.TrimSpace(price.PackageID),
		ProductID:     strings.TrimSpace(price.ProductID),
		PriceBronze:   cloneFloatPointer(price.PriceBronze),
		PriceSilver:   cloneFloatPointer(price.PriceSilver),
		PriceGold:     cloneFloatPointer(price.PriceGold),
		PricePlatinum: cloneFloatPointer(price.PricePlatinum),
		PriceDiamond:  cloneFloatPointer(price.PriceDiamond),
		UpdatedAt:     price.UpdatedAt.UTC(),
	}
}

func decodePackagePriceDocument(id string, doc packagePriceDocument) domain.PackagePrice {
	return domain.PackagePrice{
		ID:            id,
		PackageID:     strings.TrimSpace(doc.PackageID),
		ProductID:     strings.TrimSpace(doc.ProductID),
		PriceBronze:   cloneFloatPointer(doc.PriceBronze),
		PriceSilver:   cloneFloatPointer(doc.PriceSilver),
		PriceGold:     cloneFloatPointer(doc.PriceGold),
		PricePlatinum: cloneFloatPointer(doc.PricePlatinum),
		PriceDiamond:  cloneFloatPointer(doc.PriceDiamond),
		UpdatedAt:     doc.UpdatedAt,
	}
}

func cloneFloatPointer(value *float64) *float64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

var _ repositories.PackagePriceRepository = (*PackagePriceRepository)(nil)
