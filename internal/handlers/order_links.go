package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshcatch/api/internal/platform/httpx"
	"github.com/freshcatch/api/internal/services"
)

const (
	linkValidationLimit  = 30
	linkValidationWindow = time.Minute
)

// OrderLinkHandlers exposes public validation of guest checkout tokens.
type OrderLinkHandlers struct {
	links   services.OrderLinkService
	limiter rateLimiter
}

// NewOrderLinkHandlers constructs handlers for the public order link surface.
// Token validation is rate limited per client IP so tokens cannot be guessed
// by enumeration.
func NewOrderLinkHandlers(links services.OrderLinkService) *OrderLinkHandlers {
	return &OrderLinkHandlers{
		links:   links,
		limiter: newSimpleRateLimiter(linkValidationLimit, linkValidationWindow, nil),
	}
}

// Routes wires the /order-links endpoints onto the provided router.
func (h *OrderLinkHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{token}", h.validate)
}

func (h *OrderLinkHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.links == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_link_service_unavailable", "order link service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many validation attempts", http.StatusTooManyRequests))
		return
	}

	token := strings.TrimSpace(chi.URLParam(r, "token"))
	session, err := h.links.Validate(ctx, token)
	if err != nil {
		writeOrderLinkError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, linkSessionResponse{
		Session: linkSessionPayload{
			Token:             session.Token,
			CustomerID:        session.CustomerID,
			PricingPackageID:  session.PricingPackageID,
			BronzeTierEnabled: session.BronzeTierEnabled,
		},
	})
}

func writeOrderLinkError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderLinkInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderLinkNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("link_not_found", "order link not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderLinkDeactivated):
		httpx.WriteError(ctx, w, httpx.NewError("link_deactivated", "order link has been deactivated", http.StatusGone))
	case errors.Is(err, services.ErrOrderLinkExpired):
		httpx.WriteError(ctx, w, httpx.NewError("link_expired", "order link has expired", http.StatusGone))
	case errors.Is(err, services.ErrOrderLinkUsed):
		httpx.WriteError(ctx, w, httpx.NewError("link_used", "order link has already been used", http.StatusGone))
	case errors.Is(err, services.ErrOrderLinkUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_link_service_unavailable", "order link service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_link_error", "failed to validate order link", http.StatusInternalServerError))
	}
}

type linkSessionResponse struct {
	Session linkSessionPayload `json:"session"`
}

type linkSessionPayload struct {
	Token             string `json:"token"`
	CustomerID        string `json:"customer_id"`
	PricingPackageID  string `json:"pricing_package_id,omitempty"`
	BronzeTierEnabled bool   `json:"bronze_tier_enabled"`
}
