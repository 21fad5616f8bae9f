package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/platform/observability"
	"github.com/freshcatch/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartEngineRequired     = errors.New("cart service: summary engine is required")
	errCartCatalogRequired    = errors.New("cart service: catalog service is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing dependencies or backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartNotFound indicates the requested cart or cart line does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// catalogResolver narrows CatalogService to the single read the cart flow needs.
type catalogResolver interface {
	ResolveCatalog(ctx context.Context, pricingPackageID string) ([]Product, error)
}

// CartServiceDeps wires the repository, catalog, and summary engine for cart operations.
type CartServiceDeps struct {
	Repository    repositories.CartRepository
	Catalog       catalogResolver
	Engine        *OrderSummaryEngine
	Clock         func() time.Time
	MinItemWeight float64
	Logger        func(context.Context, string, map[string]any)
}

type cartService struct {
	repo          repositories.CartRepository
	catalog       catalogResolver
	engine        *OrderSummaryEngine
	now           func() time.Time
	minItemWeight float64
	logger        func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Engine == nil {
		return nil, errCartEngineRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	minItem := deps.MinItemWeight
	if minItem <= 0 {
		minItem = domain.MinItemWeightKg
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:          deps.Repository,
		catalog:       deps.Catalog,
		engine:        deps.Engine,
		now:           func() time.Time { return deps.Clock().UTC() },
		minItemWeight: minItem,
		logger:        logger,
	}, nil
}

// GetOrCreateCart loads the active cart for the link session, creating an empty cart when absent.
func (s *cartService) GetOrCreateCart(ctx context.Context, session LinkSession) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	token := strings.TrimSpace(session.Token)
	if token == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, token)
	if err != nil {
		if isRepoNotFound(err) {
			saved, err := s.repo.UpsertCart(ctx, s.newCart(session), nil)
			if err != nil {
				return Cart{}, s.translateRepoError(err)
			}
			cart = saved
		} else {
			return Cart{}, s.translateRepoError(err)
		}
	}

	return s.normaliseCart(cart, session), nil
}

// SetLine adds a product to the cart or replaces its quantity. Quantities
// under the per-line minimum are clamped up to it here so downstream pricing
// never sees sub-minimum lines; a zero or negative quantity removes the line.
func (s *cartService) SetLine(ctx context.Context, cmd SetCartLineCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	token := strings.TrimSpace(cmd.Session.Token)
	if token == "" {
		return Cart{}, ErrCartInvalidInput
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: product_id is required", ErrCartInvalidInput)
	}

	quantity := cmd.Quantity
	if quantity != quantity { // NaN
		return Cart{}, fmt.Errorf("%w: quantity must be a finite number", ErrCartInvalidInput)
	}
	if quantity <= 0 {
		return s.RemoveLine(ctx, RemoveCartLineCommand{Session: cmd.Session, ProductID: productID})
	}
	if quantity < s.minItemWeight {
		quantity = s.minItemWeight
	}

	cart, err := s.repo.GetCart(ctx, token)
	if err != nil {
		if isRepoNotFound(err) {
			cart = s.newCart(cmd.Session)
		} else {
			return Cart{}, s.translateRepoError(err)
		}
	}
	cart = s.normaliseCart(cart, cmd.Session)

	now := s.now()
	lines := cloneCartLines(cart.Lines)
	idx := indexOfCartLine(lines, productID)
	if idx >= 0 {
		lines[idx].Quantity = quantity
	} else {
		lines = append(lines, domain.CartLine{
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   now,
		})
	}

	saved, err := s.repo.ReplaceLines(ctx, token, lines)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return s.normaliseCart(saved, cmd.Session), nil
}

// RemoveLine drops a product from the cart.
func (s *cartService) RemoveLine(ctx context.Context, cmd RemoveCartLineCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	token := strings.TrimSpace(cmd.Session.Token)
	if token == "" {
		return Cart{}, ErrCartInvalidInput
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, token)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}
	cart = s.normaliseCart(cart, cmd.Session)

	lines := cloneCartLines(cart.Lines)
	idx := indexOfCartLine(lines, productID)
	if idx < 0 {
		return Cart{}, ErrCartNotFound
	}
	lines = append(lines[:idx], lines[idx+1:]...)

	saved, err := s.repo.ReplaceLines(ctx, token, lines)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return s.normaliseCart(saved, cmd.Session), nil
}

// ClearCart drops every line from the session's cart.
func (s *cartService) ClearCart(ctx context.Context, session LinkSession) error {
	if s == nil || s.repo == nil {
		return ErrCartUnavailable
	}

	token := strings.TrimSpace(session.Token)
	if token == "" {
		return ErrCartInvalidInput
	}

	if _, err := s.repo.ReplaceLines(ctx, token, []domain.CartLine{}); err != nil {
		if isRepoNotFound(err) {
			return nil
		}
		return s.translateRepoError(err)
	}
	return nil
}

// Quote loads the cart, resolves the session's catalog, and computes one
// summary that every surface renders from.
func (s *cartService) Quote(ctx context.Context, session LinkSession) (CartQuote, error) {
	cart, err := s.GetOrCreateCart(ctx, session)
	if err != nil {
		return CartQuote{}, err
	}

	catalog, err := s.catalog.ResolveCatalog(ctx, session.PricingPackageID)
	if err != nil {
		s.logger(ctx, "cart.catalog_resolution_failed", map[string]any{
			"token": observability.RedactToken(session.Token),
			"error": err.Error(),
		})
		return CartQuote{}, ErrCartUnavailable
	}

	summary := s.engine.Summarize(SummarizeCartCommand{
		Lines:          cart.Lines,
		Catalog:        catalog,
		BronzeEligible: session.BronzeTierEnabled,
	})

	return CartQuote{
		Cart:             cart,
		Summary:          summary,
		CheckoutEligible: s.engine.EligibleForCheckout(summary.TotalWeight, session.BronzeTierEnabled),
		MinOrderWeightKg: domain.MinOrderWeightKg,
	}, nil
}

func (s *cartService) newCart(session LinkSession) domain.Cart {
	now := s.now()
	return domain.Cart{
		ID:         strings.TrimSpace(session.Token),
		CustomerID: strings.TrimSpace(session.CustomerID),
		LinkToken:  strings.TrimSpace(session.Token),
		Lines:      []domain.CartLine{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *cartService) normaliseCart(cart domain.Cart, session LinkSession) domain.Cart {
	if cart.ID = strings.TrimSpace(cart.ID); cart.ID == "" {
		cart.ID = strings.TrimSpace(session.Token)
	}
	cart.LinkToken = strings.TrimSpace(firstNonEmpty(cart.LinkToken, session.Token))
	cart.CustomerID = strings.TrimSpace(firstNonEmpty(cart.CustomerID, session.CustomerID))
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = s.now()
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = s.now()
	}
	return cart
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}

func cloneCartLines(lines []domain.CartLine) []domain.CartLine {
	if len(lines) == 0 {
		return []domain.CartLine{}
	}
	dup := make([]domain.CartLine, len(lines))
	copy(dup, lines)
	return dup
}

func indexOfCartLine(lines []domain.CartLine, productID string) int {
	target := strings.TrimSpace(productID)
	if target == "" {
		return -1
	}
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line.ProductID), target) {
			return i
		}
	}
	return -1
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
