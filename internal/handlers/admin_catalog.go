package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/platform/auth"
	"github.com/freshcatch/api/internal/platform/httpx"
	"github.com/freshcatch/api/internal/platform/storage"
	"github.com/freshcatch/api/internal/services"
)

const maxCatalogBodySize = 256 * 1024

// AdminCatalogHandlers exposes catalog maintenance: products, pricing
// packages, and per-package price overrides.
type AdminCatalogHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
	media   services.MediaService
}

// NewAdminCatalogHandlers constructs admin catalog handlers. The media service
// is optional; image and export endpoints answer 503 when it is absent.
func NewAdminCatalogHandlers(authn *auth.Authenticator, catalog services.CatalogService, media services.MediaService) *AdminCatalogHandlers {
	return &AdminCatalogHandlers{authn: authn, catalog: catalog, media: media}
}

// Routes registers admin catalog endpoints.
func (h *AdminCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	r.Route("/products", func(rt chi.Router) {
		rt.Get("/", h.listProducts)
		rt.Post("/", h.createProduct)
		rt.Put("/{productID}", h.updateProduct)
		rt.Delete("/{productID}", h.archiveProduct)
		rt.Post("/{productID}/image-uploads", h.createImageUpload)
		rt.Post("/{productID}/image", h.attachImage)
	})
	r.Get("/exports/orders/{fileName}", h.orderExportURL)
	r.Route("/packages", func(rt chi.Router) {
		rt.Get("/", h.listPackages)
		rt.Post("/", h.createPackage)
		rt.Put("/{packageID}", h.updatePackage)
		rt.Put("/{packageID}/prices", h.upsertPackagePrice)
		rt.Delete("/{packageID}/prices/{priceID}", h.deletePackagePrice)
	})
}

func (h *AdminCatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	filter := services.ProductListFilter{
		ActiveOnly: strings.EqualFold(strings.TrimSpace(query.Get("active_only")), "true"),
		Code:       strings.TrimSpace(query.Get("code")),
		Pagination: domain.Pagination{
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	}
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
			return
		}
		filter.Pagination.PageSize = parsed
	}

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := productListResponse{
		Products:      make([]productPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, product := range page.Items {
		payload.Products = append(payload.Products, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminCatalogHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "")
}

func (h *AdminCatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, strings.TrimSpace(chi.URLParam(r, "productID")))
}

func (h *AdminCatalogHandlers) saveProduct(w http.ResponseWriter, r *http.Request, productID string) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req productRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cmd := services.UpsertProductCommand{
		Code:          req.Code,
		EnglishName:   req.EnglishName,
		MalayalamName: req.MalayalamName,
		Preparation:   req.Preparation,
		Packaging:     req.Packaging,
		SizeSpec:      req.SizeSpec,
		Description:   req.Description,
		ImagePath:     req.ImagePath,
		PriceBronze:   req.PriceBronze,
		PriceSilver:   req.PriceSilver,
		PriceGold:     req.PriceGold,
		PricePlatinum: req.PricePlatinum,
		PriceDiamond:  req.PriceDiamond,
	}

	var (
		product services.Product
		status  = http.StatusCreated
	)
	if productID == "" {
		product, err = h.catalog.CreateProduct(ctx, cmd)
	} else {
		cmd.ProductID = &productID
		product, err = h.catalog.UpdateProduct(ctx, cmd)
		status = http.StatusOK
	}
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, status, productResponse{Product: buildProductPayload(product)})
}

func (h *AdminCatalogHandlers) archiveProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if err := h.catalog.ArchiveProduct(ctx, productID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) listPackages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	pager := domain.Pagination{
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
			return
		}
		pager.PageSize = parsed
	}

	page, err := h.catalog.ListPackages(ctx, pager)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := packageListResponse{
		Packages:      make([]packagePayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, pkg := range page.Items {
		payload.Packages = append(payload.Packages, buildPackagePayload(pkg))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminCatalogHandlers) createPackage(w http.ResponseWriter, r *http.Request) {
	h.savePackage(w, r, "")
}

func (h *AdminCatalogHandlers) updatePackage(w http.ResponseWriter, r *http.Request) {
	h.savePackage(w, r, strings.TrimSpace(chi.URLParam(r, "packageID")))
}

func (h *AdminCatalogHandlers) savePackage(w http.ResponseWriter, r *http.Request, packageID string) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req packageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cmd := services.UpsertPackageCommand{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	}

	var (
		pkg    services.PricingPackage
		status = http.StatusCreated
	)
	if packageID == "" {
		pkg, err = h.catalog.CreatePackage(ctx, cmd)
	} else {
		cmd.PackageID = &packageID
		pkg, err = h.catalog.UpdatePackage(ctx, cmd)
		status = http.StatusOK
	}
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, status, packageResponse{Package: buildPackagePayload(pkg)})
}

func (h *AdminCatalogHandlers) upsertPackagePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req packagePriceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	price, err := h.catalog.UpsertPackagePrice(ctx, services.UpsertPackagePriceCommand{
		PackageID:     strings.TrimSpace(chi.URLParam(r, "packageID")),
		ProductID:     req.ProductID,
		PriceBronze:   req.PriceBronze,
		PriceSilver:   req.PriceSilver,
		PriceGold:     req.PriceGold,
		PricePlatinum: req.PricePlatinum,
		PriceDiamond:  req.PriceDiamond,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, packagePriceResponse{Price: buildPackagePricePayload(price)})
}

func (h *AdminCatalogHandlers) deletePackagePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	priceID := strings.TrimSpace(chi.URLParam(r, "priceID"))
	if err := h.catalog.DeletePackagePrice(ctx, priceID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildPackagePayload(pkg services.PricingPackage) packagePayload {
	payload := packagePayload{
		ID:          pkg.ID,
		Name:        pkg.Name,
		Description: pkg.Description,
		Active:      pkg.Active,
	}
	if !pkg.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(pkg.UpdatedAt)
	}
	return payload
}

func buildPackagePricePayload(price services.PackagePrice) packagePricePayload {
	return packagePricePayload{
		ID:            price.ID,
		PackageID:     price.PackageID,
		ProductID:     price.ProductID,
		PriceBronze:   price.PriceBronze,
		PriceSilver:   price.PriceSilver,
		PriceGold:     price.PriceGold,
		PricePlatinum: price.PricePlatinum,
		PriceDiamond:  price.PriceDiamond,
	}
}

type productListResponse struct {
	Products      []productPayload `json:"products"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type productRequest struct {
	Code          string   `json:"code"`
	EnglishName   string   `json:"english_name"`
	MalayalamName string   `json:"malayalam_name"`
	Preparation   string   `json:"preparation"`
	Packaging     string   `json:"packaging"`
	SizeSpec      string   `json:"size_spec"`
	Description   string   `json:"description"`
	ImagePath     string   `json:"image_path"`
	PriceBronze   *float64 `json:"price_bronze"`
	PriceSilver   float64  `json:"price_silver"`
	PriceGold     float64  `json:"price_gold"`
	PricePlatinum float64  `json:"price_platinum"`
	PriceDiamond  float64  `json:"price_diamond"`
}

type packageListResponse struct {
	Packages      []packagePayload `json:"packages"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type packageRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type packageResponse struct {
	Package packagePayload `json:"package"`
}

type packagePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type packagePriceRequest struct {
	ProductID     string   `json:"product_id"`
	PriceBronze   *float64 `json:"price_bronze"`
	PriceSilver   *float64 `json:"price_silver"`
	PriceGold     *float64 `json:"price_gold"`
	PricePlatinum *float64 `json:"price_platinum"`
	PriceDiamond  *float64 `json:"price_diamond"`
}

type packagePriceResponse struct {
	Price packagePricePayload `json:"price"`
}

type packagePricePayload struct {
	ID            string   `json:"id"`
	PackageID     string   `json:"package_id"`
	ProductID     string   `json:"product_id"`
	PriceBronze   *float64 `json:"price_bronze,omitempty"`
	PriceSilver   *float64 `json:"price_silver,omitempty"`
	PriceGold     *float64 `json:"price_gold,omitempty"`
	PricePlatinum *float64 `json:"price_platinum,omitempty"`
	PriceDiamond  *float64 `json:"price_diamond,omitempty"`
}

func (h *AdminCatalogHandlers) createImageUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		httpx.WriteError(ctx, w, httpx.NewError("media_service_unavailable", "media service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req imageUploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	upload, err := h.media.CreateProductImageUpload(ctx, services.ProductImageUploadCommand{
		ProductID:   strings.TrimSpace(chi.URLParam(r, "productID")),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		ContentMD5:  req.ContentMD5,
	})
	if err != nil {
		writeMediaError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, imageUploadResponse{
		UploadID:   upload.UploadID,
		ObjectPath: upload.ObjectPath,
		URL:        upload.URL,
		Method:     upload.Method,
		Headers:    upload.Headers,
		ExpiresAt:  formatTime(upload.ExpiresAt),
	})
}

func (h *AdminCatalogHandlers) attachImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		httpx.WriteError(ctx, w, httpx.NewError("media_service_unavailable", "media service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req attachImageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	product, err := h.media.AttachProductImage(ctx, services.AttachProductImageCommand{
		ProductID: strings.TrimSpace(chi.URLParam(r, "productID")),
		UploadID:  req.UploadID,
		FileName:  req.FileName,
	})
	if err != nil {
		writeMediaError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *AdminCatalogHandlers) orderExportURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		httpx.WriteError(ctx, w, httpx.NewError("media_service_unavailable", "media service is unavailable", http.StatusServiceUnavailable))
		return
	}

	download, err := h.media.OrderExportDownloadURL(ctx, strings.TrimSpace(chi.URLParam(r, "fileName")))
	if err != nil {
		writeMediaError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, exportDownloadResponse{
		URL:       download.URL,
		ExpiresAt: formatTime(download.ExpiresAt),
	})
}

func writeMediaError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrMediaInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrMediaNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, storage.ErrPermissionDenied):
		httpx.WriteError(ctx, w, httpx.NewError("permission_denied", "not allowed to access this object", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("media_service_unavailable", "media service is unavailable", http.StatusServiceUnavailable))
	}
}

type imageUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	ContentMD5  string `json:"content_md5,omitempty"`
}

type imageUploadResponse struct {
	UploadID   string            `json:"upload_id"`
	ObjectPath string            `json:"object_path"`
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers,omitempty"`
	ExpiresAt  string            `json:"expires_at"`
}

type attachImageRequest struct {
	UploadID string `json:"upload_id"`
	FileName string `json:"file_name"`
}

type exportDownloadResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
