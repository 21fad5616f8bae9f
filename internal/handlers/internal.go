package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/platform/httpx"
	"github.com/freshcatch/api/internal/services"
)

const maxInternalBodySize = 4 * 1024

// InternalHandlers exposes service-to-service endpoints: counter allocation for
// back-office numbering and the logistics callback that advances order status.
// Authentication is applied by the caller when wiring routes.
type InternalHandlers struct {
	system services.SystemService
	orders services.OrderService
}

// NewInternalHandlers constructs the internal surface handlers.
func NewInternalHandlers(system services.SystemService, orders services.OrderService) *InternalHandlers {
	return &InternalHandlers{
		system: system,
		orders: orders,
	}
}

// Routes wires the machine-to-machine endpoints onto the provided router.
func (h *InternalHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/counters/{scope}/{name}", h.nextCounter)
}

// WebhookRoutes wires signed callback endpoints onto the provided router.
func (h *InternalHandlers) WebhookRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/orders/{orderID}/status", h.orderStatusCallback)
}

func (h *InternalHandlers) nextCounter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteError(ctx, w, httpx.NewError("system_service_unavailable", "system service is unavailable", http.StatusServiceUnavailable))
		return
	}

	scope := strings.TrimSpace(chi.URLParam(r, "scope"))
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if scope == "" || name == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "counter scope and name are required", http.StatusBadRequest))
		return
	}

	var step int64
	if raw := strings.TrimSpace(r.URL.Query().Get("step")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "step must be a positive integer", http.StatusBadRequest))
			return
		}
		step = parsed
	}

	value, err := h.system.NextCounterValue(ctx, services.CounterCommand{
		Scope: scope,
		Name:  name,
		Step:  step,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("counter_error", "counter allocation failed", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, counterResponse{
		Scope: scope,
		Name:  name,
		Value: value,
	})
}

func (h *InternalHandlers) orderStatusCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxInternalBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req orderStatusCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.ValidStatus() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be one of pending, confirmed, delivered, cancelled", http.StatusBadRequest))
		return
	}

	actorID := strings.TrimSpace(req.Source)
	if actorID == "" {
		actorID = "logistics-webhook"
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID: strings.TrimSpace(chi.URLParam(r, "orderID")),
		Status:  status,
		ActorID: actorID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type counterResponse struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type orderStatusCallbackRequest struct {
	Status string `json:"status"`
	Source string `json:"source,omitempty"`
}
