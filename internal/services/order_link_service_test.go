package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/freshcatch/api/internal/domain"
)

type stubOrderLinkRepository struct {
	links map[string]domain.OrderLink

	inserted []domain.OrderLink
}

func newStubOrderLinkRepository() *stubOrderLinkRepository {
	return &stubOrderLinkRepository{links: make(map[string]domain.OrderLink)}
}

func (s *stubOrderLinkRepository) Insert(ctx context.Context, link domain.OrderLink) error {
	s.links[link.Token] = link
	s.inserted = append(s.inserted, link)
	return nil
}

func (s *stubOrderLinkRepository) FindByToken(ctx context.Context, token string) (domain.OrderLink, error) {
	link, ok := s.links[token]
	if !ok {
		return domain.OrderLink{}, &fakeRepoError{notFound: true}
	}
	return link, nil
}

func (s *stubOrderLinkRepository) MarkUsed(ctx context.Context, token string, usedAt time.Time) (domain.OrderLink, error) {
	link, ok := s.links[token]
	if !ok {
		return domain.OrderLink{}, &fakeRepoError{notFound: true}
	}
	link.IsUsed = true
	link.UsedAt = &usedAt
	s.links[token] = link
	return link, nil
}

func (s *stubOrderLinkRepository) Deactivate(ctx context.Context, token string) (domain.OrderLink, error) {
	link, ok := s.links[token]
	if !ok {
		return domain.OrderLink{}, &fakeRepoError{notFound: true}
	}
	link.IsActive = false
	s.links[token] = link
	return link, nil
}

func (s *stubOrderLinkRepository) ListByCustomer(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.OrderLink], error) {
	var items []domain.OrderLink
	for _, link := range s.links {
		if link.CustomerID == customerID {
			items = append(items, link)
		}
	}
	return domain.CursorPage[domain.OrderLink]{Items: items}, nil
}

type stubCustomerFinder struct {
	customer domain.Customer
	err      error
}

func (s *stubCustomerFinder) GetCustomer(ctx context.Context, customerID string) (domain.Customer, error) {
	if s.err != nil {
		return domain.Customer{}, s.err
	}
	return s.customer, nil
}

var linkTestNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestLinkService(t *testing.T, repo *stubOrderLinkRepository, customers customerFinder) OrderLinkService {
	t.Helper()
	svc, err := NewOrderLinkService(OrderLinkServiceDeps{
		Repository: repo,
		Customers:  customers,
		Clock:      func() time.Time { return linkTestNow },
		TokenGen:   func() (string, error) { return "tok-fixed", nil },
	})
	if err != nil {
		t.Fatalf("new order link service: %v", err)
	}
	return svc
}

func TestOrderLinkServiceIssueSeedsFromCustomer(t *testing.T) {
	repo := newStubOrderLinkRepository()
	customers := &stubCustomerFinder{customer: domain.Customer{
		ID:                "cust-1",
		PricingPackageID:  "pkg-hotel",
		BronzeTierEnabled: true,
	}}
	svc := newTestLinkService(t, repo, customers)

	link, err := svc.Issue(context.Background(), IssueOrderLinkCommand{CustomerID: "cust-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if link.Token != "tok-fixed" {
		t.Fatalf("expected generated token, got %s", link.Token)
	}
	if link.PricingPackageID != "pkg-hotel" {
		t.Fatalf("expected package inherited from customer, got %q", link.PricingPackageID)
	}
	if !link.BronzeTierEnabled {
		t.Fatalf("expected bronze flag inherited from customer")
	}
	if !link.IsActive || link.IsUsed {
		t.Fatalf("expected fresh active link, got active=%v used=%v", link.IsActive, link.IsUsed)
	}
	wantExpiry := linkTestNow.Add(7 * 24 * time.Hour)
	if !link.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, link.ExpiresAt)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(repo.inserted))
	}
}

func TestOrderLinkServiceIssueUnknownCustomer(t *testing.T) {
	repo := newStubOrderLinkRepository()
	svc := newTestLinkService(t, repo, &stubCustomerFinder{err: ErrCustomerNotFound})

	_, err := svc.Issue(context.Background(), IssueOrderLinkCommand{CustomerID: "cust-missing"})
	if !errors.Is(err, ErrOrderLinkInvalidInput) {
		t.Fatalf("expected ErrOrderLinkInvalidInput, got %v", err)
	}
}

func TestOrderLinkServiceValidateStates(t *testing.T) {
	repo := newStubOrderLinkRepository()
	svc := newTestLinkService(t, repo, nil)
	ctx := context.Background()

	baseLink := domain.OrderLink{
		Token:      "tok",
		CustomerID: "cust-1",
		IsActive:   true,
		ExpiresAt:  linkTestNow.Add(time.Hour),
		CreatedAt:  linkTestNow.Add(-time.Hour),
	}

	cases := []struct {
		name    string
		mutate  func(link *domain.OrderLink)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(link *domain.OrderLink) {},
		},
		{
			name:    "deactivated",
			mutate:  func(link *domain.OrderLink) { link.IsActive = false },
			wantErr: ErrOrderLinkDeactivated,
		},
		{
			name:    "expired",
			mutate:  func(link *domain.OrderLink) { link.ExpiresAt = linkTestNow.Add(-time.Minute) },
			wantErr: ErrOrderLinkExpired,
		},
		{
			name:    "used",
			mutate:  func(link *domain.OrderLink) { link.IsUsed = true },
			wantErr: ErrOrderLinkUsed,
		},
		{
			name: "deactivated wins over expired",
			mutate: func(link *domain.OrderLink) {
				link.IsActive = false
				link.ExpiresAt = linkTestNow.Add(-time.Minute)
				link.IsUsed = true
			},
			wantErr: ErrOrderLinkDeactivated,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			link := baseLink
			tc.mutate(&link)
			repo.links["tok"] = link

			session, err := svc.Validate(ctx, "tok")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if session.Token != "tok" || session.CustomerID != "cust-1" {
				t.Fatalf("unexpected session %+v", session)
			}
		})
	}
}

func TestOrderLinkServiceValidateMissingToken(t *testing.T) {
	repo := newStubOrderLinkRepository()
	svc := newTestLinkService(t, repo, nil)

	if _, err := svc.Validate(context.Background(), "   "); !errors.Is(err, ErrOrderLinkInvalidInput) {
		t.Fatalf("expected ErrOrderLinkInvalidInput, got %v", err)
	}
	if _, err := svc.Validate(context.Background(), "tok-unknown"); !errors.Is(err, ErrOrderLinkNotFound) {
		t.Fatalf("expected ErrOrderLinkNotFound, got %v", err)
	}
}

func TestOrderLinkServiceMarkUsed(t *testing.T) {
	repo := newStubOrderLinkRepository()
	repo.links["tok"] = domain.OrderLink{Token: "tok", CustomerID: "cust-1", IsActive: true}
	svc := newTestLinkService(t, repo, nil)

	link, err := svc.MarkUsed(context.Background(), "tok")
	if err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if !link.IsUsed {
		t.Fatalf("expected link marked used")
	}
	if link.UsedAt == nil || !link.UsedAt.Equal(linkTestNow) {
		t.Fatalf("expected usedAt %v, got %v", linkTestNow, link.UsedAt)
	}
}

func TestOrderLinkServiceDeactivate(t *testing.T) {
	repo := newStubOrderLinkRepository()
	repo.links["tok"] = domain.OrderLink{Token: "tok", CustomerID: "cust-1", IsActive: true}
	svc := newTestLinkService(t, repo, nil)

	link, err := svc.Deactivate(context.Background(), "tok")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if link.IsActive {
		t.Fatalf("expected link deactivated")
	}

	if _, err := svc.Deactivate(context.Background(), "tok-unknown"); !errors.Is(err, ErrOrderLinkNotFound) {
		t.Fatalf("expected ErrOrderLinkNotFound, got %v", err)
	}
}
