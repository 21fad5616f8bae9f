package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freshcatch/api/internal/platform/httpx"
	"github.com/freshcatch/api/internal/services"
)

// CatalogHandlers exposes the public catalog. When a valid order link token is
// supplied the catalog is resolved against the customer's pricing package.
type CatalogHandlers struct {
	catalog services.CatalogService
	links   services.OrderLinkService
}

// NewCatalogHandlers constructs handlers for the public catalog surface.
func NewCatalogHandlers(catalog services.CatalogService, links services.OrderLinkService) *CatalogHandlers {
	return &CatalogHandlers{
		catalog: catalog,
		links:   links,
	}
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCatalog)
	r.Get("/{productID}", h.getProduct)
}

func (h *CatalogHandlers) getCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	packageID := ""
	bronzeEligible := false
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		if h.links == nil {
			httpx.WriteError(ctx, w, httpx.NewError("order_link_service_unavailable", "order link service is unavailable", http.StatusServiceUnavailable))
			return
		}
		session, err := h.links.Validate(ctx, token)
		if err != nil {
			writeOrderLinkError(ctx, w, err)
			return
		}
		packageID = session.PricingPackageID
		bronzeEligible = session.BronzeTierEnabled
	}

	products, err := h.catalog.ResolveCatalog(ctx, packageID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := catalogResponse{
		Products:       make([]productPayload, 0, len(products)),
		BronzeEligible: bronzeEligible,
	}
	for _, product := range products {
		payload.Products = append(payload.Products, buildProductPayload(product))
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_conflict", "catalog entry was modified concurrently", http.StatusConflict))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to load catalog", http.StatusInternalServerError))
	}
}

func buildProductPayload(product services.Product) productPayload {
	payload := productPayload{
		ID:            product.ID,
		Code:          product.Code,
		EnglishName:   product.EnglishName,
		MalayalamName: product.MalayalamName,
		Preparation:   product.Preparation,
		Packaging:     product.Packaging,
		SizeSpec:      product.SizeSpec,
		Description:   product.Description,
		ImagePath:     product.ImagePath,
		PriceSilver:   product.PriceSilver,
		PriceGold:     product.PriceGold,
		PricePlatinum: product.PricePlatinum,
		PriceDiamond:  product.PriceDiamond,
		Active:        product.Active,
	}
	if product.PriceBronze != nil {
		value := *product.PriceBronze
		payload.PriceBronze = &value
	}
	if !product.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(product.UpdatedAt)
	}
	return payload
}

type catalogResponse struct {
	Products       []productPayload `json:"products"`
	BronzeEligible bool             `json:"bronze_eligible"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	ID            string   `json:"id"`
	Code          string   `json:"code"`
	EnglishName   string   `json:"english_name"`
	MalayalamName string   `json:"malayalam_name,omitempty"`
	Preparation   string   `json:"preparation,omitempty"`
	Packaging     string   `json:"packaging,omitempty"`
	SizeSpec      string   `json:"size_spec,omitempty"`
	Description   string   `json:"description,omitempty"`
	ImagePath     string   `json:"image_path,omitempty"`
	PriceBronze   *float64 `json:"price_bronze,omitempty"`
	PriceSilver   float64  `json:"price_silver"`
	PriceGold     float64  `json:"price_gold"`
	PricePlatinum float64  `json:"price_platinum"`
	PriceDiamond  float64  `json:"price_diamond"`
	Active        bool     `json:"active"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}
