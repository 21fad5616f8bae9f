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

type stubOrderLinkService struct {
	issue          func(ctx context.Context, cmd services.IssueOrderLinkCommand) (services.OrderLink, error)
	validate       func(ctx context.Context, token string) (services.LinkSession, error)
	markUsed       func(ctx context.Context, token string) (services.OrderLink, error)
	deactivate     func(ctx context.Context, token string) (services.OrderLink, error)
	listByCustomer func(ctx context.Context, customerID string, pager services.Pagination) (domain.CursorPage[services.OrderLink], error)
}

func (s *stubOrderLinkService) Issue(ctx context.Context, cmd services.IssueOrderLinkCommand) (services.OrderLink, error) {
	if s.issue == nil {
		return services.OrderLink{}, nil
	}
	return s.issue(ctx, cmd)
}

func (s *stubOrderLinkService) Validate(ctx context.Context, token string) (services.LinkSession, error) {
	if s.validate == nil {
		return services.LinkSession{}, nil
	}
	return s.validate(ctx, token)
}

func (s *stubOrderLinkService) MarkUsed(ctx context.Context, token string) (services.OrderLink, error) {
	if s.markUsed == nil {
		return services.OrderLink{}, nil
	}
	return s.markUsed(ctx, token)
}

func (s *stubOrderLinkService) Deactivate(ctx context.Context, token string) (services.OrderLink, error) {
	if s.deactivate == nil {
		return services.OrderLink{}, nil
	}
	return s.deactivate(ctx, token)
}

func (s *stubOrderLinkService) ListByCustomer(ctx context.Context, customerID string, pager services.Pagination) (domain.CursorPage[services.OrderLink], error) {
	if s.listByCustomer == nil {
		return domain.CursorPage[services.OrderLink]{}, nil
	}
	return s.listByCustomer(ctx, customerID, pager)
}

var _ services.OrderLinkService = (*stubOrderLinkService)(nil)

func TestOrderLinkHandlersValidate(t *testing.T) {
	links := &stubOrderLinkService{
		validate: func(_ context.Context, token string) (services.LinkSession, error) {
			if token != "tok-abc" {
				t.Fatalf("expected token tok-abc, got %s", token)
			}
			return services.LinkSession{
				Token:             token,
				CustomerID:        "cust-1",
				PricingPackageID:  "pkg-1",
				BronzeTierEnabled: true,
			}, nil
		},
	}

	router := chi.NewRouter()
	NewOrderLinkHandlers(links).Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/tok-abc", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body linkSessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Session.CustomerID != "cust-1" {
		t.Fatalf("expected customer cust-1, got %s", body.Session.CustomerID)
	}
	if !body.Session.BronzeTierEnabled {
		t.Fatalf("expected bronze_tier_enabled true")
	}
}

func TestOrderLinkHandlersValidateErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", services.ErrOrderLinkNotFound, http.StatusNotFound, "link_not_found"},
		{"expired", services.ErrOrderLinkExpired, http.StatusGone, "link_expired"},
		{"used", services.ErrOrderLinkUsed, http.StatusGone, "link_used"},
		{"deactivated", services.ErrOrderLinkDeactivated, http.StatusGone, "link_deactivated"},
		{"unavailable", services.ErrOrderLinkUnavailable, http.StatusServiceUnavailable, "order_link_service_unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			links := &stubOrderLinkService{
				validate: func(context.Context, string) (services.LinkSession, error) {
					return services.LinkSession{}, tc.err
				},
			}

			router := chi.NewRouter()
			NewOrderLinkHandlers(links).Routes(router)

			req := httptest.NewRequest(http.MethodGet, "/tok-bad", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			if body := decodeError(t, rr); body.Error != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, body.Error)
			}
		})
	}
}

func TestOrderLinkHandlersValidateRateLimited(t *testing.T) {
	handlers := NewOrderLinkHandlers(&stubOrderLinkService{})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	handlers.limiter = newSimpleRateLimiter(1, time.Minute, func() time.Time { return now })

	router := chi.NewRouter()
	handlers.Routes(router)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/tok-1", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/tok-1", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", second.Code)
	}
	if body := decodeError(t, second); body.Error != "rate_limited" {
		t.Fatalf("expected rate_limited, got %s", body.Error)
	}
}
