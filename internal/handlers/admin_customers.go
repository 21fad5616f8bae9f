package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/platform/auth"
	"github.com/freshcatch/api/internal/platform/httpx"
	"github.com/freshcatch/api/internal/services"
)

const maxCustomerBodySize = 64 * 1024

// AdminCustomerHandlers exposes customer records and the order links issued to
// them.
type AdminCustomerHandlers struct {
	authn     *auth.Authenticator
	customers services.CustomerService
	links     services.OrderLinkService
}

// NewAdminCustomerHandlers constructs admin customer handlers.
func NewAdminCustomerHandlers(authn *auth.Authenticator, customers services.CustomerService, links services.OrderLinkService) *AdminCustomerHandlers {
	return &AdminCustomerHandlers{
		authn:     authn,
		customers: customers,
		links:     links,
	}
}

// Routes registers admin customer endpoints.
func (h *AdminCustomerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	r.Get("/", h.listCustomers)
	r.Post("/", h.createCustomer)
	r.Get("/{customerID}", h.getCustomer)
	r.Put("/{customerID}", h.updateCustomer)
	r.Get("/{customerID}/links", h.listLinks)
	r.Post("/{customerID}/links", h.issueLink)
	r.Delete("/{customerID}/links/{token}", h.deactivateLink)
}

func (h *AdminCustomerHandlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		httpx.WriteError(ctx, w, httpx.NewError("customer_service_unavailable", "customer service is unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}

	page, err := h.customers.ListCustomers(ctx, pager)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	payload := customerListResponse{
		Customers:     make([]customerPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, customer := range page.Items {
		payload.Customers = append(payload.Customers, buildCustomerPayload(customer))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminCustomerHandlers) createCustomer(w http.ResponseWriter, r *http.Request) {
	h.saveCustomer(w, r, "")
}

func (h *AdminCustomerHandlers) updateCustomer(w http.ResponseWriter, r *http.Request) {
	h.saveCustomer(w, r, strings.TrimSpace(chi.URLParam(r, "customerID")))
}

func (h *AdminCustomerHandlers) saveCustomer(w http.ResponseWriter, r *http.Request, customerID string) {
	ctx := r.Context()
	if h.customers == nil {
		httpx.WriteError(ctx, w, httpx.NewError("customer_service_unavailable", "customer service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCustomerBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req customerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cmd := services.UpsertCustomerCommand{
		Name:              req.Name,
		Phone:             req.Phone,
		Email:             req.Email,
		Place:             req.Place,
		PreferredLanguage: req.PreferredLanguage,
		PricingPackageID:  req.PricingPackageID,
		BronzeTierEnabled: req.BronzeTierEnabled,
	}

	var (
		customer services.Customer
		status   = http.StatusCreated
	)
	if customerID == "" {
		customer, err = h.customers.CreateCustomer(ctx, cmd)
	} else {
		cmd.CustomerID = &customerID
		customer, err = h.customers.UpdateCustomer(ctx, cmd)
		status = http.StatusOK
	}
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	writeJSONResponse(w, status, customerResponse{Customer: buildCustomerPayload(customer)})
}

func (h *AdminCustomerHandlers) getCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		httpx.WriteError(ctx, w, httpx.NewError("customer_service_unavailable", "customer service is unavailable", http.StatusServiceUnavailable))
		return
	}

	customer, err := h.customers.GetCustomer(ctx, strings.TrimSpace(chi.URLParam(r, "customerID")))
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, customerResponse{Customer: buildCustomerPayload(customer)})
}

func (h *AdminCustomerHandlers) listLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.links == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_link_service_unavailable", "order link service is unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}

	page, err := h.links.ListByCustomer(ctx, strings.TrimSpace(chi.URLParam(r, "customerID")), pager)
	if err != nil {
		writeOrderLinkError(ctx, w, err)
		return
	}

	payload := orderLinkListResponse{
		Links:         make([]orderLinkPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, link := range page.Items {
		payload.Links = append(payload.Links, buildOrderLinkPayload(link))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminCustomerHandlers) issueLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.links == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_link_service_unavailable", "order link service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd := services.IssueOrderLinkCommand{
		CustomerID: strings.TrimSpace(chi.URLParam(r, "customerID")),
	}

	if r.ContentLength != 0 {
		body, err := readLimitedBody(r, maxCustomerBodySize)
		if err != nil && !errors.Is(err, errEmptyBody) {
			writeBodyError(ctx, w, err)
			return
		}
		if err == nil {
			var req issueLinkRequest
			if err := json.Unmarshal(body, &req); err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
				return
			}
			cmd.PricingPackageID = strings.TrimSpace(req.PricingPackageID)
			if req.BronzeTierEnabled != nil {
				cmd.BronzeTierEnabled = *req.BronzeTierEnabled
			}
			if req.TTLHours > 0 {
				cmd.TTL = time.Duration(req.TTLHours) * time.Hour
			}
		}
	}

	link, err := h.links.Issue(ctx, cmd)
	if err != nil {
		writeOrderLinkError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderLinkResponse{Link: buildOrderLinkPayload(link)})
}

func (h *AdminCustomerHandlers) deactivateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.links == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_link_service_unavailable", "order link service is unavailable", http.StatusServiceUnavailable))
		return
	}

	link, err := h.links.Deactivate(ctx, strings.TrimSpace(chi.URLParam(r, "token")))
	if err != nil {
		writeOrderLinkError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderLinkResponse{Link: buildOrderLinkPayload(link)})
}

func parsePagination(w http.ResponseWriter, r *http.Request) (domain.Pagination, bool) {
	query := r.URL.Query()
	pager := domain.Pagination{
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
			return domain.Pagination{}, false
		}
		pager.PageSize = parsed
	}
	return pager, true
}

func writeCustomerError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCustomerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCustomerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("customer_not_found", "customer not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCustomerUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("customer_service_unavailable", "customer service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("customer_error", "customer operation failed", http.StatusInternalServerError))
	}
}

func buildCustomerPayload(customer services.Customer) customerPayload {
	payload := customerPayload{
		ID:                customer.ID,
		Name:              customer.Name,
		Phone:             customer.Phone,
		Email:             customer.Email,
		Place:             customer.Place,
		PreferredLanguage: customer.PreferredLanguage,
		PricingPackageID:  customer.PricingPackageID,
		BronzeTierEnabled: customer.BronzeTierEnabled,
	}
	if !customer.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(customer.UpdatedAt)
	}
	return payload
}

func buildOrderLinkPayload(link services.OrderLink) orderLinkPayload {
	payload := orderLinkPayload{
		Token:             link.Token,
		CustomerID:        link.CustomerID,
		PricingPackageID:  link.PricingPackageID,
		BronzeTierEnabled: link.BronzeTierEnabled,
		IsActive:          link.IsActive,
		IsUsed:            link.IsUsed,
	}
	if !link.ExpiresAt.IsZero() {
		payload.ExpiresAt = formatTime(link.ExpiresAt)
	}
	if !link.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(link.CreatedAt)
	}
	if link.UsedAt != nil && !link.UsedAt.IsZero() {
		payload.UsedAt = formatTime(*link.UsedAt)
	}
	return payload
}

type customerListResponse struct {
	Customers     []customerPayload `json:"customers"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type customerRequest struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Place             string `json:"place"`
	PreferredLanguage string `json:"preferred_language"`
	PricingPackageID  string `json:"pricing_package_id"`
	BronzeTierEnabled *bool  `json:"bronze_tier_enabled"`
}

type customerResponse struct {
	Customer customerPayload `json:"customer"`
}

type customerPayload struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	Place             string `json:"place,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
	PricingPackageID  string `json:"pricing_package_id,omitempty"`
	BronzeTierEnabled bool   `json:"bronze_tier_enabled"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

type issueLinkRequest struct {
	PricingPackageID  string `json:"pricing_package_id"`
	BronzeTierEnabled *bool  `json:"bronze_tier_enabled"`
	TTLHours          int    `json:"ttl_hours"`
}

type orderLinkListResponse struct {
	Links         []orderLinkPayload `json:"links"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

type orderLinkResponse struct {
	Link orderLinkPayload `json:"link"`
}

type orderLinkPayload struct {
	Token             string `json:"token"`
	CustomerID        string `json:"customer_id"`
	PricingPackageID  string `json:"pricing_package_id,omitempty"`
	BronzeTierEnabled bool   `json:"bronze_tier_enabled"`
	IsActive          bool   `json:"is_active"`
	IsUsed            bool   `json:"is_used"`
	ExpiresAt         string `json:"expires_at,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	UsedAt            string `json:"used_at,omitempty"`
}
