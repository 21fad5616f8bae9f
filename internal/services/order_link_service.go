package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/repositories"
)

var (
	// ErrOrderLinkInvalidInput indicates the caller supplied invalid link parameters.
	ErrOrderLinkInvalidInput = errors.New("order link service: invalid input")
	// ErrOrderLinkNotFound indicates no link exists for the token.
	ErrOrderLinkNotFound = errors.New("order link service: not found")
	// ErrOrderLinkDeactivated indicates the link was revoked by the back office.
	ErrOrderLinkDeactivated = errors.New("order link service: deactivated")
	// ErrOrderLinkExpired indicates the link's validity window has passed.
	ErrOrderLinkExpired = errors.New("order link service: expired")
	// ErrOrderLinkUsed indicates the single-use link has already placed an order.
	ErrOrderLinkUsed = errors.New("order link service: already used")
	// ErrOrderLinkUnavailable indicates a backend failure while resolving the link.
	ErrOrderLinkUnavailable = errors.New("order link service: unavailable")
)

const (
	linkTokenLength  = 32
	linkTokenCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	defaultLinkTTL = 7 * 24 * time.Hour
)

// customerFinder narrows CustomerService to the lookup link issuance needs.
type customerFinder interface {
	GetCustomer(ctx context.Context, customerID string) (Customer, error)
}

// OrderLinkServiceDeps bundles collaborators for the order link service.
type OrderLinkServiceDeps struct {
	Repository repositories.OrderLinkRepository
	Customers  customerFinder
	Clock      func() time.Time
	TokenGen   func() (string, error)
	Logger     func(context.Context, string, map[string]any)
}

type orderLinkService struct {
	repo      repositories.OrderLinkRepository
	customers customerFinder
	now       func() time.Time
	newToken  func() (string, error)
	logger    func(context.Context, string, map[string]any)
}

// NewOrderLinkService constructs the guest token service.
func NewOrderLinkService(deps OrderLinkServiceDeps) (OrderLinkService, error) {
	if deps.Repository == nil {
		return nil, errors.New("order link service: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	tokenGen := deps.TokenGen
	if tokenGen == nil {
		tokenGen = generateLinkToken
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderLinkService{
		repo:      deps.Repository,
		customers: deps.Customers,
		now:       func() time.Time { return clock().UTC() },
		newToken:  tokenGen,
		logger:    logger,
	}, nil
}

// Issue mints a new single-use link for a customer. The customer's assigned
// pricing package and bronze flag seed the link unless the command overrides
// them explicitly.
func (s *orderLinkService) Issue(ctx context.Context, cmd IssueOrderLinkCommand) (OrderLink, error) {
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return OrderLink{}, fmt.Errorf("%w: customer_id is required", ErrOrderLinkInvalidInput)
	}

	packageID := strings.TrimSpace(cmd.PricingPackageID)
	bronze := cmd.BronzeTierEnabled
	if s.customers != nil {
		customer, err := s.customers.GetCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, ErrCustomerNotFound) {
				return OrderLink{}, fmt.Errorf("%w: customer not found", ErrOrderLinkInvalidInput)
			}
			return OrderLink{}, ErrOrderLinkUnavailable
		}
		if packageID == "" {
			packageID = strings.TrimSpace(customer.PricingPackageID)
		}
		if !bronze {
			bronze = customer.BronzeTierEnabled
		}
	}

	token, err := s.newToken()
	if err != nil {
		return OrderLink{}, ErrOrderLinkUnavailable
	}

	ttl := cmd.TTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}

	now := s.now()
	link := domain.OrderLink{
		Token:             token,
		CustomerID:        customerID,
		PricingPackageID:  packageID,
		BronzeTierEnabled: bronze,
		IsActive:          true,
		ExpiresAt:         now.Add(ttl),
		CreatedAt:         now,
	}

	if err := s.repo.Insert(ctx, link); err != nil {
		return OrderLink{}, s.translateRepoError(err)
	}

	s.logger(ctx, "order_link.issued", map[string]any{
		"customerID": customerID,
		"packageID":  packageID,
		"bronze":     bronze,
	})
	return link, nil
}

// Validate resolves a raw token to a usable session. Failure states are
// checked in a fixed order so callers can surface the most specific reason:
// missing, deactivated, expired, then already used.
func (s *orderLinkService) Validate(ctx context.Context, token string) (LinkSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return LinkSession{}, fmt.Errorf("%w: token is required", ErrOrderLinkInvalidInput)
	}

	link, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if isRepoNotFound(err) {
			return LinkSession{}, ErrOrderLinkNotFound
		}
		return LinkSession{}, s.translateRepoError(err)
	}

	if !link.IsActive {
		return LinkSession{}, ErrOrderLinkDeactivated
	}
	if !link.ExpiresAt.IsZero() && s.now().After(link.ExpiresAt) {
		return LinkSession{}, ErrOrderLinkExpired
	}
	if link.IsUsed {
		return LinkSession{}, ErrOrderLinkUsed
	}

	return LinkSession{
		Token:             link.Token,
		CustomerID:        link.CustomerID,
		PricingPackageID:  link.PricingPackageID,
		BronzeTierEnabled: link.BronzeTierEnabled,
	}, nil
}

// MarkUsed records a successful order submission against the link.
func (s *orderLinkService) MarkUsed(ctx context.Context, token string) (OrderLink, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return OrderLink{}, fmt.Errorf("%w: token is required", ErrOrderLinkInvalidInput)
	}

	link, err := s.repo.MarkUsed(ctx, token, s.now())
	if err != nil {
		if isRepoNotFound(err) {
			return OrderLink{}, ErrOrderLinkNotFound
		}
		return OrderLink{}, s.translateRepoError(err)
	}
	return link, nil
}

// Deactivate revokes a link so it can no longer open a session.
func (s *orderLinkService) Deactivate(ctx context.Context, token string) (OrderLink, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return OrderLink{}, fmt.Errorf("%w: token is required", ErrOrderLinkInvalidInput)
	}

	link, err := s.repo.Deactivate(ctx, token)
	if err != nil {
		if isRepoNotFound(err) {
			return OrderLink{}, ErrOrderLinkNotFound
		}
		return OrderLink{}, s.translateRepoError(err)
	}
	return link, nil
}

// ListByCustomer returns a customer's links newest first.
func (s *orderLinkService) ListByCustomer(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[OrderLink], error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CursorPage[OrderLink]{}, fmt.Errorf("%w: customer_id is required", ErrOrderLinkInvalidInput)
	}

	page, err := s.repo.ListByCustomer(ctx, customerID, pager)
	if err != nil {
		return domain.CursorPage[OrderLink]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *orderLinkService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrOrderLinkNotFound
		}
	}
	return ErrOrderLinkUnavailable
}

func generateLinkToken() (string, error) {
	max := big.NewInt(int64(len(linkTokenCharset)))
	buf := make([]byte, linkTokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate link token: %w", err)
		}
		buf[i] = linkTokenCharset[n.Int64()]
	}
	return string(buf), nil
}
