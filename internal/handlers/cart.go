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

const (
	maxCartBodySize  = 16 * 1024
	orderTokenHeader = "X-Order-Token"
)

// CartHandlers exposes the token-scoped cart endpoints. Every request must
// carry a valid order link token; the resolved session scopes the cart.
type CartHandlers struct {
	links services.OrderLinkService
	carts services.CartService
}

// NewCartHandlers constructs handlers validating the order link before invoking the cart service.
func NewCartHandlers(links services.OrderLinkService, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		links: links,
		carts: carts,
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Put("/lines", h.setLine)
	r.Delete("/lines/{productID}", h.removeLine)
	r.Delete("/", h.clearCart)
	r.Post("/summary", h.quote)
}

func (h *CartHandlers) session(w http.ResponseWriter, r *http.Request) (services.LinkSession, bool) {
	ctx := r.Context()
	if h.links == nil || h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return services.LinkSession{}, false
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = strings.TrimSpace(r.Header.Get(orderTokenHeader))
	}
	if token == "" {
		httpx.WriteError(ctx, w, httpx.NewError("missing_order_token", "order link token is required", http.StatusUnauthorized))
		return services.LinkSession{}, false
	}

	session, err := h.links.Validate(ctx, token)
	if err != nil {
		writeOrderLinkError(ctx, w, err)
		return services.LinkSession{}, false
	}
	return session, true
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateCart(ctx, session)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) setLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req setLineRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product_id is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.SetLine(ctx, services.SetCartLineCommand{
		Session:   session,
		ProductID: req.ProductID,
		Quantity:  req.QuantityKg,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.RemoveLine(ctx, services.RemoveCartLineCommand{
		Session:   session,
		ProductID: productID,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(ctx, session); err != nil {
		writeCartError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	quote, err := h.carts.Quote(ctx, session)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cartQuoteResponse{
		Cart:             buildCartPayload(quote.Cart),
		Summary:          buildSummaryPayload(quote.Summary),
		CheckoutEligible: quote.CheckoutEligible,
		MinOrderWeightKg: quote.MinOrderWeightKg,
	})
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}

func buildCartPayload(cart services.Cart) cartPayload {
	payload := cartPayload{
		LinkToken:  cart.LinkToken,
		CustomerID: cart.CustomerID,
		LinesCount: len(cart.Lines),
		Lines:      make([]cartLinePayload, 0, len(cart.Lines)),
	}
	for _, line := range cart.Lines {
		entry := cartLinePayload{
			ProductID:  line.ProductID,
			QuantityKg: line.Quantity,
		}
		if !line.AddedAt.IsZero() {
			entry.AddedAt = formatTime(line.AddedAt)
		}
		payload.Lines = append(payload.Lines, entry)
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(cart.UpdatedAt)
	}
	return payload
}

func buildSummaryPayload(summary services.OrderSummary) orderSummaryPayload {
	payload := orderSummaryPayload{
		TotalWeightKg: summary.TotalWeight,
		Tier:          string(summary.Tier),
		KgToNextTier:  summary.KgToNextTier,
		Subtotal:      summary.Subtotal,
		TotalSavings:  summary.TotalSavings,
		Items:         make([]pricedLinePayload, 0, len(summary.Items)),
	}
	if summary.NextTier != nil {
		next := string(*summary.NextTier)
		payload.NextTier = &next
	}
	for _, item := range summary.Items {
		payload.Items = append(payload.Items, pricedLinePayload{
			ProductID:     item.Product.ID,
			Code:          item.Product.Code,
			EnglishName:   item.Product.EnglishName,
			MalayalamName: item.Product.MalayalamName,
			QuantityKg:    item.Quantity,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.LineTotal,
			LineSavings:   item.LineSavings,
		})
	}
	return payload
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartQuoteResponse struct {
	Cart             cartPayload         `json:"cart"`
	Summary          orderSummaryPayload `json:"summary"`
	CheckoutEligible bool                `json:"checkout_eligible"`
	MinOrderWeightKg float64             `json:"min_order_weight_kg"`
}

type cartPayload struct {
	LinkToken  string            `json:"link_token"`
	CustomerID string            `json:"customer_id,omitempty"`
	LinesCount int               `json:"lines_count"`
	Lines      []cartLinePayload `json:"lines"`
	UpdatedAt  string            `json:"updated_at,omitempty"`
}

type cartLinePayload struct {
	ProductID  string  `json:"product_id"`
	QuantityKg float64 `json:"quantity_kg"`
	AddedAt    string  `json:"added_at,omitempty"`
}

type orderSummaryPayload struct {
	TotalWeightKg float64             `json:"total_weight_kg"`
	Tier          string              `json:"tier"`
	NextTier      *string             `json:"next_tier,omitempty"`
	KgToNextTier  float64             `json:"kg_to_next_tier"`
	Subtotal      float64             `json:"subtotal"`
	TotalSavings  float64             `json:"total_savings"`
	Items         []pricedLinePayload `json:"items"`
}

type pricedLinePayload struct {
	ProductID     string  `json:"product_id"`
	Code          string  `json:"code"`
	EnglishName   string  `json:"english_name"`
	MalayalamName string  `json:"malayalam_name,omitempty"`
	QuantityKg    float64 `json:"quantity_kg"`
	UnitPrice     float64 `json:"unit_price"`
	LineTotal     float64 `json:"line_total"`
	LineSavings   float64 `json:"line_savings"`
}

type setLineRequest struct {
	ProductID  string  `json:"product_id"`
	QuantityKg float64 `json:"quantity_kg"`
}
