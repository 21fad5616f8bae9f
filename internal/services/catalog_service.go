package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog operation.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogNotFound indicates the requested product or package does not exist.
	ErrCatalogNotFound = errors.New("catalog service: not found")
	// ErrCatalogConflict indicates a concurrent modification or duplicate code.
	ErrCatalogConflict = errors.New("catalog service: conflict")
	// ErrCatalogUnavailable indicates the catalog backend cannot serve the request.
	ErrCatalogUnavailable = errors.New("catalog service: unavailable")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products      repositories.ProductRepository
	PackagePrices repositories.PackagePriceRepository
	Packages      repositories.PricingPackageRepository
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(context.Context, string, map[string]any)
}

type catalogService struct {
	products  repositories.ProductRepository
	prices    repositories.PackagePriceRepository
	packages  repositories.PricingPackageRepository
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
	sanitizer *bluemonday.Policy
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	if deps.PackagePrices == nil {
		return nil, errors.New("catalog service: package price repository is required")
	}
	if deps.Packages == nil {
		return nil, errors.New("catalog service: pricing package repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		products:  deps.Products,
		prices:    deps.PackagePrices,
		packages:  deps.Packages,
		clock:     func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// ResolveCatalog returns the product list a customer actually sees. With no
// package, or a package carrying no overrides, it is the default catalog;
// otherwise package rows override per price column, with unset columns
// falling back to the product's defaults.
func (s *catalogService) ResolveCatalog(ctx context.Context, pricingPackageID string) ([]Product, error) {
	products, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}

	packageID := strings.TrimSpace(pricingPackageID)
	if packageID == "" {
		return products, nil
	}

	overrides, err := s.prices.ListByPackage(ctx, packageID)
	if err != nil {
		if isRepoNotFound(err) {
			return products, nil
		}
		return nil, s.translateRepoError(err)
	}
	if len(overrides) == 0 {
		return products, nil
	}

	byProduct := make(map[string]domain.PackagePrice, len(overrides))
	for _, row := range overrides {
		byProduct[strings.TrimSpace(row.ProductID)] = row
	}

	merged := make([]Product, len(products))
	for i, product := range products {
		merged[i] = mergePackagePrice(product, byProduct)
	}
	return merged, nil
}

func mergePackagePrice(product domain.Product, overrides map[string]domain.PackagePrice) domain.Product {
	row, ok := overrides[product.ID]
	if !ok {
		return product
	}
	if row.PriceBronze != nil {
		v := *row.PriceBronze
		product.PriceBronze = &v
	}
	if row.PriceSilver != nil {
		product.PriceSilver = *row.PriceSilver
	}
	if row.PriceGold != nil {
		product.PriceGold = *row.PriceGold
	}
	if row.PricePlatinum != nil {
		product.PricePlatinum = *row.PricePlatinum
	}
	if row.PriceDiamond != nil {
		product.PriceDiamond = *row.PriceDiamond
	}
	return product
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product_id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error) {
	page, err := s.products.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Product]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	product, err := s.productFromCommand(cmd)
	if err != nil {
		return Product{}, err
	}

	now := s.clock()
	product.ID = strings.TrimSpace(s.newID())
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.logger(ctx, "catalog.product_created", map[string]any{
		"productID": product.ID,
		"code":      product.Code,
	})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	if cmd.ProductID == nil || strings.TrimSpace(*cmd.ProductID) == "" {
		return Product{}, fmt.Errorf("%w: product_id is required", ErrCatalogInvalidInput)
	}

	existing, err := s.products.FindByID(ctx, strings.TrimSpace(*cmd.ProductID))
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	product, err := s.productFromCommand(cmd)
	if err != nil {
		return Product{}, err
	}

	product.ID = existing.ID
	product.Active = existing.Active
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.clock()

	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *catalogService) ArchiveProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product_id is required", ErrCatalogInvalidInput)
	}
	if err := s.products.Archive(ctx, productID, s.clock()); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *catalogService) CreatePackage(ctx context.Context, cmd UpsertPackageCommand) (PricingPackage, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return PricingPackage{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}

	now := s.clock()
	pkg := domain.PricingPackage{
		ID:          strings.TrimSpace(s.newID()),
		Name:        name,
		Description: s.sanitizer.Sanitize(strings.TrimSpace(cmd.Description)),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cmd.Active != nil {
		pkg.Active = *cmd.Active
	}

	if err := s.packages.Insert(ctx, pkg); err != nil {
		return PricingPackage{}, s.translateRepoError(err)
	}
	return pkg, nil
}

func (s *catalogService) UpdatePackage(ctx context.Context, cmd UpsertPackageCommand) (PricingPackage, error) {
	if cmd.PackageID == nil || strings.TrimSpace(*cmd.PackageID) == "" {
		return PricingPackage{}, fmt.Errorf("%w: package_id is required", ErrCatalogInvalidInput)
	}

	pkg, err := s.packages.FindByID(ctx, strings.TrimSpace(*cmd.PackageID))
	if err != nil {
		return PricingPackage{}, s.translateRepoError(err)
	}

	if name := strings.TrimSpace(cmd.Name); name != "" {
		pkg.Name = name
	}
	if desc := strings.TrimSpace(cmd.Description); desc != "" {
		pkg.Description = s.sanitizer.Sanitize(desc)
	}
	if cmd.Active != nil {
		pkg.Active = *cmd.Active
	}
	pkg.UpdatedAt = s.clock()

	if err := s.packages.Update(ctx, pkg); err != nil {
		return PricingPackage{}, s.translateRepoError(err)
	}
	return pkg, nil
}

func (s *catalogService) ListPackages(ctx context.Context, pager Pagination) (domain.CursorPage[PricingPackage], error) {
	page, err := s.packages.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[PricingPackage]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *catalogService) UpsertPackagePrice(ctx context.Context, cmd UpsertPackagePriceCommand) (PackagePrice, error) {
	packageID := strings.TrimSpace(cmd.PackageID)
	if packageID == "" {
		return PackagePrice{}, fmt.Errorf("%w: package_id is required", ErrCatalogInvalidInput)
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return PackagePrice{}, fmt.Errorf("%w: product_id is required", ErrCatalogInvalidInput)
	}
	for _, price := range []*float64{cmd.PriceBronze, cmd.PriceSilver, cmd.PriceGold, cmd.PricePlatinum, cmd.PriceDiamond} {
		if price != nil && *price < 0 {
			return PackagePrice{}, fmt.Errorf("%w: prices must be non-negative", ErrCatalogInvalidInput)
		}
	}

	if _, err := s.packages.FindByID(ctx, packageID); err != nil {
		return PackagePrice{}, s.translateRepoError(err)
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return PackagePrice{}, s.translateRepoError(err)
	}

	row := domain.PackagePrice{
		PackageID:     packageID,
		ProductID:     productID,
		PriceBronze:   cmd.PriceBronze,
		PriceSilver:   cmd.PriceSilver,
		PriceGold:     cmd.PriceGold,
		PricePlatinum: cmd.PricePlatinum,
		PriceDiamond:  cmd.PriceDiamond,
		UpdatedAt:     s.clock(),
	}
	if cmd.PriceID != nil && strings.TrimSpace(*cmd.PriceID) != "" {
		row.ID = strings.TrimSpace(*cmd.PriceID)
	} else {
		row.ID = strings.TrimSpace(s.newID())
	}

	saved, err := s.prices.Upsert(ctx, row)
	if err != nil {
		return PackagePrice{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *catalogService) DeletePackagePrice(ctx context.Context, priceID string) error {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return fmt.Errorf("%w: price_id is required", ErrCatalogInvalidInput)
	}
	if err := s.prices.Delete(ctx, priceID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *catalogService) productFromCommand(cmd UpsertProductCommand) (domain.Product, error) {
	code := strings.TrimSpace(cmd.Code)
	if code == "" {
		return domain.Product{}, fmt.Errorf("%w: code is required", ErrCatalogInvalidInput)
	}
	english := strings.TrimSpace(cmd.EnglishName)
	if english == "" {
		return domain.Product{}, fmt.Errorf("%w: english_name is required", ErrCatalogInvalidInput)
	}
	if cmd.PriceSilver < 0 || cmd.PriceGold < 0 || cmd.PricePlatinum < 0 || cmd.PriceDiamond < 0 {
		return domain.Product{}, fmt.Errorf("%w: prices must be non-negative", ErrCatalogInvalidInput)
	}
	if cmd.PriceBronze != nil && *cmd.PriceBronze < 0 {
		return domain.Product{}, fmt.Errorf("%w: prices must be non-negative", ErrCatalogInvalidInput)
	}

	var bronze *float64
	if cmd.PriceBronze != nil {
		v := *cmd.PriceBronze
		bronze = &v
	}

	return domain.Product{
		Code:          code,
		EnglishName:   english,
		MalayalamName: strings.TrimSpace(cmd.MalayalamName),
		Preparation:   strings.TrimSpace(cmd.Preparation),
		Packaging:     strings.TrimSpace(cmd.Packaging),
		SizeSpec:      strings.TrimSpace(cmd.SizeSpec),
		Description:   s.sanitizer.Sanitize(strings.TrimSpace(cmd.Description)),
		ImagePath:     strings.TrimSpace(cmd.ImagePath),
		PriceBronze:   bronze,
		PriceSilver:   cmd.PriceSilver,
		PriceGold:     cmd.PriceGold,
		PricePlatinum: cmd.PricePlatinum,
		PriceDiamond:  cmd.PriceDiamond,
	}, nil
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogNotFound
		case repoErr.IsConflict():
			return ErrCatalogConflict
		case repoErr.IsUnavailable():
			return ErrCatalogUnavailable
		}
		return ErrCatalogUnavailable
	}
	return ErrCatalogUnavailable
}
