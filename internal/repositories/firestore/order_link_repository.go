package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/freshcatch/api/internal/domain"
	pfirestore "github.com/freshcatch/api/internal/platform/firestore"
	"github.com/freshcatch/api/internal/repositories"
)

const orderLinksCollection = "orderLinks"

// OrderLinkRepository persists one-time checkout link documents keyed by token.
type OrderLinkRepository struct {
	base *pfirestore.BaseRepository[orderLinkDocument]
}

// NewOrderLinkRepository constructs a Firestore-backed order link repository.
func NewOrderLinkRepository(provider *pfirestore.Provider) (*OrderLinkRepository, error) {
	if provider == nil {
		return nil, errors.New("order link repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[orderLinkDocument](provider, orderLinksCollection, nil, nil)
	return &OrderLinkRepository{base: base}, nil
}

// Insert stores a new link document. The token must be unique.
func (r *OrderLinkRepository) Insert(ctx context.Context, link domain.OrderLink) error {
	if r == nil || r.base == nil {
		return errors.New("order link repository not initialised")
	}
	token := strings.TrimSpace(link.Token)
	if token == "" {
		return errors.New("order link repository: token is required")
	}
	_, err := r.base.Set(ctx, token, encodeOrderLinkDocument(link))
	return err
}

// FindByToken fetches a single link.
func (r *OrderLinkRepository) FindByToken(ctx context.Context, token string) (domain.OrderLink, error) {
	if r == nil || r.base == nil {
		return domain.OrderLink{}, errors.New("order link repository not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.OrderLink{}, errors.New("order link repository: token is required")
	}
	doc, err := r.base.Get(ctx, token)
	if err != nil {
		return domain.OrderLink{}, err
	}
	return decodeOrderLinkDocument(doc.ID, doc.Data), nil
}

// MarkUsed flags a link as consumed and records the consumption time.
func (r *OrderLinkRepository) MarkUsed(ctx context.Context, token string, usedAt time.Time) (domain.OrderLink, error) {
	if r == nil || r.base == nil {
		return domain.OrderLink{}, errors.New("order link repository not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.OrderLink{}, errors.New("order link repository: token is required")
	}
	updates := []firestore.Update{
		{Path: "isUsed", Value: true},
		{Path: "usedAt", Value: usedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, token, updates); err != nil {
		return domain.OrderLink{}, err
	}
	return r.FindByToken(ctx, token)
}

// Deactivate disables a link so it can no longer open a cart.
func (r *OrderLinkRepository) Deactivate(ctx context.Context, token string) (domain.OrderLink, error) {
	if r == nil || r.base == nil {
		return domain.OrderLink{}, errors.New("order link repository not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.OrderLink{}, errors.New("order link repository: token is required")
	}
	updates := []firestore.Update{
		{Path: "isActive", Value: false},
	}
	if _, err := r.base.Update(ctx, token, updates); err != nil {
		return domain.OrderLink{}, err
	}
	return r.FindByToken(ctx, token)
}

// ListByCustomer returns links issued to a customer, newest first.
func (r *OrderLinkRepository) ListByCustomer(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.OrderLink], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.OrderLink]{}, errors.New("order link repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CursorPage[domain.OrderLink]{}, errors.New("order link repository: customer id is required")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.OrderLink]{}, fmt.Errorf("order link repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("customerId", "==", customerID)
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.OrderLink]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.UpdateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.OrderLink, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeOrderLinkDocument(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.OrderLink]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type orderLinkDocument struct {
	CustomerID       string     `firestore:"customerId"`
	PricingPackageID string     `firestore:"pricingPackageId,omitempty"`
	BronzeEnabled    bool       `firestore:"bronzeTierEnabled"`
	IsActive         bool       `firestore:"isActive"`
	IsUsed           bool       `firestore:"isUsed"`
	ExpiresAt        time.Time  `firestore:"expiresAt"`
	CreatedAt        time.Time  `firestore:"createdAt"`
	UsedAt           *time.Time `firestore:"usedAt,omitempty"`
}

func encodeOrderLinkDocument(link domain.OrderLink) orderLinkDocument {
	doc := orderLinkDocument{
		CustomerID:       strings.TrimSpace(link.CustomerID),
		PricingPackageID: strings.TrimSpace(link.PricingPackageID),
		BronzeEnabled:    link.BronzeTierEnabled,
		IsActive:         link.IsActive,
		IsUsed:           link.IsUsed,
		ExpiresAt:        link.ExpiresAt.UTC(),
		CreatedAt:        link.CreatedAt.UTC(),
	}
	if link.UsedAt != nil {
		used := link.UsedAt.UTC()
		doc.UsedAt = &used
	}
	return doc
}

func decodeOrderLinkDocument(token string, doc orderLinkDocument) domain.OrderLink {
	link := domain.OrderLink{
		Token:             token,
		CustomerID:        strings.TrimSpace(doc.CustomerID),
		PricingPackageID:  strings.TrimSpace(doc.PricingPackageID),
		BronzeTierEnabled: doc.BronzeEnabled,
		IsActive:          doc.IsActive,
		IsUsed:            doc.IsUsed,
		ExpiresAt:         doc.ExpiresAt,
		CreatedAt:         doc.CreatedAt,
	}
	if doc.UsedAt != nil {
		used := *doc.UsedAt
		link.UsedAt = &used
	}
	return link
}

var _ repositories.OrderLinkRepository = (*OrderLinkRepository)(nil)
