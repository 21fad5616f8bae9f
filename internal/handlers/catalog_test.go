package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/services"
)

type stubCatalogService struct {
	resolveCatalog     func(ctx context.Context, packageID string) ([]services.Product, error)
	getProduct         func(ctx context.Context, productID string) (services.Product, error)
	listProducts       func(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.Product], error)
	createProduct      func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error)
	updateProduct      func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error)
	archiveProduct     func(ctx context.Context, productID string) error
	createPackage      func(ctx context.Context, cmd services.UpsertPackageCommand) (services.PricingPackage, error)
	updatePackage      func(ctx context.Context, cmd services.UpsertPackageCommand) (services.PricingPackage, error)
	listPackages       func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.PricingPackage], error)
	upsertPackagePrice func(ctx context.Context, cmd services.UpsertPackagePriceCommand) (services.PackagePrice, error)
	deletePackagePrice func(ctx context.Context, priceID string) error
}

func (s *stubCatalogService) ResolveCatalog(ctx context.Context, packageID string) ([]services.Product, error) {
	if s.resolveCatalog == nil {
		return nil, nil
	}
	return s.resolveCatalog(ctx, packageID)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if s.getProduct == nil {
		return services.Product{}, nil
	}
	return s.getProduct(ctx, productID)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.Product], error) {
	if s.listProducts == nil {
		return domain.CursorPage[services.Product]{}, nil
	}
	return s.listProducts(ctx, filter)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	if s.createProduct == nil {
		return services.Product{}, nil
	}
	return s.createProduct(ctx, cmd)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	if s.updateProduct == nil {
		return services.Product{}, nil
	}
	return s.updateProduct(ctx, cmd)
}

func (s *stubCatalogService) ArchiveProduct(ctx context.Context, productID string) error {
	if s.archiveProduct == nil {
		return nil
	}
	return s.archiveProduct(ctx, productID)
}

func (s *stubCatalogService) CreatePackage(ctx context.Context, cmd services.UpsertPackageCommand) (services.PricingPackage, error) {
	if s.createPackage == nil {
		return services.PricingPackage{}, nil
	}
	return s.createPackage(ctx, cmd)
}

func (s *stubCatalogService) UpdatePackage(ctx context.Context, cmd services.UpsertPackageCommand) (services.PricingPackage, error) {
	if s.updatePackage == nil {
		return services.PricingPackage{}, nil
	}
	return s.updatePackage(ctx, cmd)
}

func (s *stubCatalogService) ListPackages(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.PricingPackage], error) {
	if s.listPackages == nil {
		return domain.CursorPage[services.PricingPackage]{}, nil
	}
	return s.listPackages(ctx, pager)
}

func (s *stubCatalogService) UpsertPackagePrice(ctx context.Context, cmd services.UpsertPackagePriceCommand) (services.PackagePrice, error) {
	if s.upsertPackagePrice == nil {
		return services.PackagePrice{}, nil
	}
	return s.upsertPackagePrice(ctx, cmd)
}

func (s *stubCatalogService) DeletePackagePrice(ctx context.Context, priceID string) error {
	if s.deletePackagePrice == nil {
		return nil
	}
	return s.deletePackagePrice(ctx, priceID)
}

var _ services.CatalogService = (*stubCatalogService)(nil)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse error body: %v", err)
	}
	return body
}

func newCatalogRouter(h *CatalogHandlers) chi.Router {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func testProduct(id, code string) services.Product {
	bronze := 240.0
	return services.Product{
		ID:            id,
		Code:          code,
		EnglishName:   "King Fish",
		MalayalamName: "Neymeen",
		PriceBronze:   &bronze,
		PriceSilver:   250,
		PriceGold:     235,
		PricePlatinum: 225,
		PriceDiamond:  215,
		Active:        true,
		UpdatedAt:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCatalogHandlersGetCatalogWithToken(t *testing.T) {
	var resolvedPackage string
	catalog := &stubCatalogService{
		resolveCatalog: func(_ context.Context, packageID string) ([]services.Product, error) {
			resolvedPackage = packageID
			return []services.Product{testProduct("prod-1", "KF01"), testProduct("prod-2", "SD02")}, nil
		},
	}
	links := &stubOrderLinkService{
		validate: func(_ context.Context, token string) (services.LinkSession, error) {
			if token != "tok-1" {
				t.Fatalf("expected token tok-1, got %s", token)
			}
			return services.LinkSession{Token: token, CustomerID: "cust-1", PricingPackageID: "pkg-1", BronzeTierEnabled: true}, nil
		},
	}

	router := newCatalogRouter(NewCatalogHandlers(catalog, links))
	req := httptest.NewRequest(http.MethodGet, "/?token=tok-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if resolvedPackage != "pkg-1" {
		t.Fatalf("expected catalog resolved for pkg-1, got %q", resolvedPackage)
	}
	if cc := rr.Header().Get("Cache-Control"); cc == "" {
		t.Fatalf("expected Cache-Control header on catalog response")
	}

	var body catalogResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !body.BronzeEligible {
		t.Fatalf("expected bronze_eligible true")
	}
	if len(body.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(body.Products))
	}
	if body.Products[0].PriceBronze == nil || *body.Products[0].PriceBronze != 240 {
		t.Fatalf("expected bronze price 240, got %v", body.Products[0].PriceBronze)
	}
}

func TestCatalogHandlersGetCatalogAnonymous(t *testing.T) {
	var resolvedPackage string
	catalog := &stubCatalogService{
		resolveCatalog: func(_ context.Context, packageID string) ([]services.Product, error) {
			resolvedPackage = packageID
			return nil, nil
		},
	}

	router := newCatalogRouter(NewCatalogHandlers(catalog, &stubOrderLinkService{}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if resolvedPackage != "" {
		t.Fatalf("expected default catalog without package, got %q", resolvedPackage)
	}

	var body catalogResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.BronzeEligible {
		t.Fatalf("expected bronze_eligible false for anonymous catalog")
	}
}

func TestCatalogHandlersGetCatalogExpiredToken(t *testing.T) {
	links := &stubOrderLinkService{
		validate: func(context.Context, string) (services.LinkSession, error) {
			return services.LinkSession{}, services.ErrOrderLinkExpired
		},
	}

	router := newCatalogRouter(NewCatalogHandlers(&stubCatalogService{}, links))
	req := httptest.NewRequest(http.MethodGet, "/?token=tok-expired", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusGone {
		t.Fatalf("expected status 410, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Error != "link_expired" {
		t.Fatalf("expected link_expired, got %s", body.Error)
	}
}

func TestCatalogHandlersGetProductNotFound(t *testing.T) {
	catalog := &stubCatalogService{
		getProduct: func(context.Context, string) (services.Product, error) {
			return services.Product{}, services.ErrCatalogNotFound
		},
	}

	router := newCatalogRouter(NewCatalogHandlers(catalog, &stubOrderLinkService{}))
	req := httptest.NewRequest(http.MethodGet, "/prod-missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Error != "product_not_found" {
		t.Fatalf("expected product_not_found, got %s", body.Error)
	}
}

func TestCatalogHandlersGetProduct(t *testing.T) {
	catalog := &stubCatalogService{
		getProduct: func(_ context.Context, productID string) (services.Product, error) {
			if productID != "prod-1" {
				t.Fatalf("expected product prod-1, got %s", productID)
			}
			return testProduct("prod-1", "KF01"), nil
		},
	}

	router := newCatalogRouter(NewCatalogHandlers(catalog, &stubOrderLinkService{}))
	req := httptest.NewRequest(http.MethodGet, "/prod-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body productResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Product.Code != "KF01" {
		t.Fatalf("expected code KF01, got %s", body.Product.Code)
	}
	if body.Product.UpdatedAt == "" {
		t.Fatalf("expected updated_at to be set")
	}
}
