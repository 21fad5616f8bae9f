package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freshcatch/api/internal/platform/httpx"
	"github.com/freshcatch/api/internal/services"
)

const maxCheckoutBodySize = 16 * 1024

// CheckoutHandlers turns an eligible cart into a submitted order. Totals are
// recomputed server side; nothing from the client is trusted beyond the token
// and the contact details.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs handlers for the checkout surface.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/quote", h.quote)
	r.Post("/", h.submit)
}

func (h *CheckoutHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = strings.TrimSpace(r.Header.Get(orderTokenHeader))
	}
	if token == "" {
		httpx.WriteError(ctx, w, httpx.NewError("missing_order_token", "order link token is required", http.StatusUnauthorized))
		return
	}

	quote, err := h.checkout.Quote(ctx, token)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, checkoutQuoteResponse{
		Summary:          buildSummaryPayload(quote.Summary),
		CheckoutEligible: quote.CheckoutEligible,
		MinOrderWeightKg: quote.MinOrderWeightKg,
	})
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req submitOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = strings.TrimSpace(r.Header.Get(orderTokenHeader))
	}
	if token == "" {
		httpx.WriteError(ctx, w, httpx.NewError("missing_order_token", "order link token is required", http.StatusUnauthorized))
		return
	}

	order, err := h.checkout.Submit(ctx, services.SubmitOrderCommand{
		Token: token,
		Contact: services.OrderContact{
			Name:  req.Contact.Name,
			Phone: req.Contact.Phone,
			Notes: req.Contact.Notes,
		},
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no priceable items", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutBelowMinimum):
		httpx.WriteError(ctx, w, httpx.NewError("below_minimum_weight", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutConflict):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_conflict", "checkout state changed; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrOrderLinkNotFound),
		errors.Is(err, services.ErrOrderLinkDeactivated),
		errors.Is(err, services.ErrOrderLinkExpired),
		errors.Is(err, services.ErrOrderLinkUsed),
		errors.Is(err, services.ErrOrderLinkInvalidInput):
		writeOrderLinkError(ctx, w, err)
	case errors.Is(err, services.ErrCartInvalidInput),
		errors.Is(err, services.ErrCartNotFound),
		errors.Is(err, services.ErrCartConflict),
		errors.Is(err, services.ErrCartUnavailable):
		writeCartError(ctx, w, err)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "checkout failed", http.StatusInternalServerError))
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:         order.ID,
		Number:     order.Number,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		Contact: orderContactPayload{
			Name:  order.Contact.Name,
			Phone: order.Contact.Phone,
			Notes: order.Contact.Notes,
		},
		Summary: buildSummaryPayload(order.Summary),
	}
	if !order.SubmittedAt.IsZero() {
		payload.SubmittedAt = formatTime(order.SubmittedAt)
	}
	if !order.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(order.UpdatedAt)
	}
	return payload
}

type checkoutQuoteResponse struct {
	Summary          orderSummaryPayload `json:"summary"`
	CheckoutEligible bool                `json:"checkout_eligible"`
	MinOrderWeightKg float64             `json:"min_order_weight_kg"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID          string              `json:"id"`
	Number      string              `json:"number"`
	CustomerID  string              `json:"customer_id,omitempty"`
	Status      string              `json:"status"`
	Contact     orderContactPayload `json:"contact"`
	Summary     orderSummaryPayload `json:"summary"`
	SubmittedAt string              `json:"submitted_at,omitempty"`
	UpdatedAt   string              `json:"updated_at,omitempty"`
}

type orderContactPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Notes string `json:"notes,omitempty"`
}

type submitOrderRequest struct {
	Token   string             `json:"token"`
	Contact submitOrderContact `json:"contact"`
}

type submitOrderContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}
