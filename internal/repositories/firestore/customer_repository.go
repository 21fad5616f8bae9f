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

const customersCollection = "customers"

// CustomerRepository persists wholesale buyer profiles.
type CustomerRepository struct {
	base *pfirestore.BaseRepository[customerDocument]
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[customerDocument](provider, customersCollection, nil, nil)
	return &CustomerRepository{base: base}, nil
}

// Insert stores a new customer document. The ID must be unique.
func (r *CustomerRepository) Insert(ctx context.Context, customer domain.Customer) error {
	if r == nil || r.base == nil {
		return errors.New("customer repository not initialised")
	}
	customerID := strings.TrimSpace(customer.ID)
	if customerID == "" {
		return errors.New("customer repository: customer id is required")
	}
	_, err := r.base.Set(ctx, customerID, encodeCustomerDocument(customer))
	return err
}

// Update replaces the stored document for an existing customer.
func (r *CustomerRepository) Update(ctx context.Context, customer domain.Customer) error {
	if r == nil || r.base == nil {
		return errors.New("customer repository not initialised")
	}
	customerID := strings.TrimSpace(customer.ID)
	if customerID == "" {
		return errors.New("customer repository: customer id is required")
	}
	if _, err := r.base.Get(ctx, customerID); err != nil {
		return err
	}
	_, err := r.base.Set(ctx, customerID, encodeCustomerDocument(customer))
	return err
}

// FindByID fetches a single customer.
func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.Customer{}, errors.New("customer repository: customer id is required")
	}
	doc, err := r.base.Get(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return decodeCustomerDocument(doc.ID, doc.Data), nil
}

// List returns customers ordered by most recent update.
func (r *CustomerRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Customer]{}, errors.New("customer repository not initialised")
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
			return domain.CursorPage[domain.Customer]{}, fmt.Errorf("customer repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.OrderBy("updatedAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Customer]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		tokenTime := last.Data.UpdatedAt
		if tokenTime.IsZero() {
			tokenTime = last.UpdateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Customer, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeCustomerDocument(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Customer]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type customerDocument struct {
	Name              string    `firestore:"name"`
	Phone             string    `firestore:"phone,omitempty"`
	Email             string    `firestore:"email,omitempty"`
	Place             string    `firestore:"place,omitempty"`
	PreferredLanguage string    `firestore:"preferredLanguage,omitempty"`
	PricingPackageID  string    `firestore:"pricingPackageId,omitempty"`
	BronzeEnabled     bool      `firestore:"bronzeTierEnabled"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

func encodeCustomerDocument(customer domain.Customer) customerDocument {
	return customerDocument{
		Name:              strings.TrimSpace(customer.Name),
		Phone:             strings.TrimSpace(customer.Phone),
		Email:             strings.TrimSpace(customer.Email),
		Place:             strings.TrimSpace(customer.Place),
		PreferredLanguage: strings.TrimSpace(customer.PreferredLanguage),
		PricingPackageID:  strings.TrimSpace(customer.PricingPackageID),
		BronzeEnabled:     customer.BronzeTierEnabled,
		CreatedAt:         customer.CreatedAt.UTC(),
		UpdatedAt:         customer.UpdatedAt.UTC(),
	}
}

func decodeCustomerDocument(id string, doc customerDocument) domain.Customer {
	return domain.Customer{
		ID:                id,
		Name:              strings.TrimSpace(doc.Name),
		Phone:             strings.TrimSpace(doc.Phone),
		Email:             strings.TrimSpace(doc.Email),
		Place:             strings.TrimSpace(doc.Place),
		PreferredLanguage: strings.TrimSpace(doc.PreferredLanguage),
		PricingPackageID:  strings.TrimSpace(doc.PricingPackageID),
		BronzeTierEnabled: doc.BronzeEnabled,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
}

var _ repositories.CustomerRepository = (*CustomerRepository)(nil)
