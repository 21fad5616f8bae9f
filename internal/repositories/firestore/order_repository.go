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

const ordersCollection = "orders"

// OrderRepository persists submitted orders with their frozen pricing summaries.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base}, nil
}

// Insert stores a new order document. The ID must be unique.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	_, err := r.base.Set(ctx, orderID, encodeOrderDocument(order))
	return err
}

// UpdateStatus transitions an order to a new status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, orderID, updates); err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, orderID)
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(doc.ID, doc.Data), nil
}

// List returns orders matching the filter, newest submission first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	customerID := strings.TrimSpace(filter.CustomerID)
	statusFilters := normaliseStatusFilters(filter.Status)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if customerID != "" {
			q = q.Where("customerId", "==", customerID)
		}
		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statusFilters) > 10 {
				statusFilters = statusFilters[:10]
			}
			q = q.Where("status", "in", statusFilters)
		}
		q = q.OrderBy("submittedAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		tokenTime := last.Data.SubmittedAt
		if tokenTime.IsZero() {
			tokenTime = last.UpdateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Order, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

func normaliseStatusFilters(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

type orderDocument struct {
	Number      string               `firestore:"number"`
	CustomerID  string               `firestore:"customerId"`
	LinkToken   string               `firestore:"linkToken,omitempty"`
	Status      string               `firestore:"status"`
	Contact     orderContactDocument `firestore:"contact"`
	Summary     orderSummaryDocument `firestore:"summary"`
	SubmittedAt time.Time            `firestore:"submittedAt"`
	UpdatedAt   time.Time            `firestore:"updatedAt"`
}

type orderContactDocument struct {
	Name  string `firestore:"name"`
	Phone string `firestore:"phone"`
	Notes string `firestore:"notes,omitempty"`
}

type orderSummaryDocument struct {
	TotalWeight  float64             `firestore:"totalWeightKg"`
	Tier         string              `firestore:"tier"`
	NextTier     string              `firestore:"nextTier,omitempty"`
	KgToNextTier float64             `firestore:"kgToNextTier"`
	Subtotal     float64             `firestore:"subtotal"`
	TotalSavings float64             `firestore:"totalSavings"`
	Items        []orderItemDocument `firestore:"items"`
}

type orderItemDocument struct {
	ProductID     string  `firestore:"productId"`
	Code          string  `firestore:"code"`
	EnglishName   string  `firestore:"englishName"`
	MalayalamName string  `firestore:"malayalamName,omitempty"`
	Quantity      float64 `firestore:"quantityKg"`
	UnitPrice     float64 `firestore:"unitPrice"`
	LineTotal     float64 `firestore:"lineTotal"`
	LineSavings   float64 `firestore:"lineSavings"`
}

func encodeOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		Number:      strings.TrimSpace(order.Number),
		CustomerID:  strings.TrimSpace(order.CustomerID),
		LinkToken:   strings.TrimSpace(order.LinkToken),
		Status:      string(order.Status),
		Contact:     encodeOrderContact(order.Contact),
		Summary:     encodeOrderSummary(order.Summary),
		SubmittedAt: order.SubmittedAt.UTC(),
		UpdatedAt:   order.UpdatedAt.UTC(),
	}
	return doc
}

func encodeOrderContact(contact domain.OrderContact) orderContactDocument {
	return orderContactDocument{
		Name:  strings.TrimSpace(contact.Name),
		Phone: strings.TrimSpace(contact.Phone),
		Notes: strings.TrimSpace(contact.Notes),
	}
}

func encodeOrderSummary(summary domain.OrderSummary) orderSummaryDocument {
	doc := orderSummaryDocument{
		TotalWeight:  summary.TotalWeight,
		Tier:         string(summary.Tier),
		KgToNextTier: summary.KgToNextTier,
		Subtotal:     summary.Subtotal,
		TotalSavings: summary.TotalSavings,
		Items:        make([]orderItemDocument, 0, len(summary.Items)),
	}
	if summary.NextTier != nil {
		doc.NextTier = string(*summary.NextTier)
	}
	for _, item := range summary.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID:     item.Product.ID,
			Code:          item.Product.Code,
			EnglishName:   item.Product.EnglishName,
			MalayalamName: item.Product.MalayalamName,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.LineTotal,
			LineSavings:   item.LineSavings,
		})
	}
	return doc
}

func decodeOrderDocument(id string, doc orderDocument) domain.Order {
	return domain.Order{
		ID:         id,
		Number:     strings.TrimSpace(doc.Number),
		CustomerID: strings.TrimSpace(doc.CustomerID),
		LinkToken:  strings.TrimSpace(doc.LinkToken),
		Status:     domain.OrderStatus(strings.TrimSpace(doc.Status)),
		Contact: domain.OrderContact{
			Name:  doc.Contact.Name,
			Phone: doc.Contact.Phone,
			Notes: doc.Contact.Notes,
		},
		Summary:     decodeOrderSummary(doc.Summary),
		SubmittedAt: doc.SubmittedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func decodeOrderSummary(doc orderSummaryDocument) domain.OrderSummary {
	summary := domain.OrderSummary{
		TotalWeight:  doc.TotalWeight,
		Tier:         domain.PricingTier(doc.Tier),
		KgToNextTier: doc.KgToNextTier,
		Subtotal:     doc.Subtotal,
		TotalSavings: doc.TotalSavings,
		Items:        make([]domain.PricedLine, 0, len(doc.Items)),
	}
	if trimmed := strings.TrimSpace(doc.NextTier); trimmed != "" {
		next := domain.PricingTier(trimmed)
		summary.NextTier = &next
	}
	for _, item := range doc.Items {
		summary.Items = append(summary.Items, domain.PricedLine{
			Product: domain.Product{
				ID:            item.ProductID,
				Code:          item.Code,
				EnglishName:   item.EnglishName,
				MalayalamName: item.MalayalamName,
			},
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
			LineSavings: item.LineSavings,
		})
	}
	return summary
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
