package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/freshcatch/api/internal/domain"
	pfirestore "github.com/freshcatch/api/internal/platform/firestore"
	"github.com/freshcatch/api/internal/repositories"
)

const (
	cartCollection = "carts"
)

// CartRepository persists cart documents keyed by order link token.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil)
	return &CartRepository{
		base:     base,
		provider: provider,
	}, nil
}

// UpsertCart persists the cart document using the link token as document identifier.
func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart, expectedUpdate *time.Time) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}

	cartID := strings.TrimSpace(firstCartID(cart))
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	now := time.Now().UTC()
	if !cart.UpdatedAt.IsZero() {
		now = cart.UpdatedAt.UTC()
	}
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := cartDocument{
		CustomerID: strings.TrimSpace(cart.CustomerID),
		LinkToken:  strings.TrimSpace(firstNonEmptyString(cart.LinkToken, cartID)),
		Lines:      encodeCartLines(cart.Lines),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}

	if expectedUpdate == nil || expectedUpdate.IsZero() {
		result, err := r.base.Set(ctx, cartID, doc)
		if err != nil {
			return domain.Cart{}, err
		}
		return cartFromDocument(cartID, doc, result.UpdateTime), nil
	}

	updates := []firestore.Update{
		{Path: "customerId", Value: doc.CustomerID},
		{Path: "lines", Value: doc.Lines},
		{Path: "updatedAt", Value: doc.UpdatedAt},
	}

	result, err := r.base.Update(ctx, cartID, updates, firestore.LastUpdateTime(expectedUpdate.UTC()))
	if err != nil {
		return domain.Cart{}, err
	}
	return cartFromDocument(cartID, doc, result.UpdateTime), nil
}

// GetCart loads the cart for the given link token.
func (r *CartRepository) GetCart(ctx context.Context, linkToken string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	token := strings.TrimSpace(linkToken)
	if token == "" {
		return domain.Cart{}, errors.New("cart repository: link token is required")
	}

	doc, err := r.base.Get(ctx, token)
	if err != nil {
		return domain.Cart{}, err
	}

	cart := cartFromDocument(doc.ID, doc.Data, doc.UpdateTime)
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = doc.UpdateTime
	}
	return cart, nil
}

// ReplaceLines swaps the full line list in one write.
func (r *CartRepository) ReplaceLines(ctx context.Context, linkToken string, lines []domain.CartLine) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	token := strings.TrimSpace(linkToken)
	if token == "" {
		return domain.Cart{}, errors.New("cart repository: link token is required")
	}

	now := time.Now().UTC()
	updates := []firestore.Update{
		{Path: "lines", Value: encodeCartLines(lines)},
		{Path: "updatedAt", Value: now},
	}

	if _, err := r.base.Update(ctx, token, updates); err != nil {
		return domain.Cart{}, err
	}

	return r.GetCart(ctx, token)
}

func firstCartID(cart domain.Cart) string {
	if strings.TrimSpace(cart.ID) != "" {
		return strings.TrimSpace(cart.ID)
	}
	return strings.TrimSpace(cart.LinkToken)
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func encodeCartLines(lines []domain.CartLine) []cartLineDocument {
	out := make([]cartLineDocument, 0, len(lines))
	for _, line := range lines {
		out = append(out, cartLineDocument{
			ProductID: strings.TrimSpace(line.ProductID),
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt.UTC(),
		})
	}
	return out
}

func cartFromDocument(id string, doc cartDocument, updateTime time.Time) domain.Cart {
	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, domain.CartLine{
			ProductID: strings.TrimSpace(line.ProductID),
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt,
		})
	}

	updatedAt := doc.UpdatedAt
	if !updateTime.IsZero() {
		updatedAt = updateTime
	}

	return domain.Cart{
		ID:         id,
		CustomerID: strings.TrimSpace(doc.CustomerID),
		LinkToken:  strings.TrimSpace(firstNonEmptyString(doc.LinkToken, id)),
		Lines:      lines,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

type cartDocument struct {
	CustomerID string             `firestore:"customerId,omitempty"`
	LinkToken  string             `firestore:"linkToken"`
	Lines      []cartLineDocument `firestore:"lines"`
	CreatedAt  time.Time          `firestore:"createdAt"`
	UpdatedAt  time.Time          `firestore:"updatedAt"`
}

type cartLineDocument struct {
	ProductID string    `firestore:"productId"`
	Quantity  float64   `firestore:"quantity"`
	AddedAt   time.Time `firestore:"addedAt"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
