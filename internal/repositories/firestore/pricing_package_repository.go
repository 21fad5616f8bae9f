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

const pricingPackagesCollection = "pricingPackages"

// PricingPackageRepository persists named price books.
type PricingPackageRepository struct {
	base *pfirestore.BaseRepository[pricingPackageDocument]
}

// NewPricingPackageRepository constructs a Firestore-backed pricing package repository.
func NewPricingPackageRepository(provider *pfirestore.Provider) (*PricingPackageRepository, error) {
	if provider == nil {
		return nil, errors.New("pricing package repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[pricingPackageDocument](provider, pricingPackagesCollection, nil, nil)
	return &PricingPackageRepository{base: base}, nil
}

// Insert stores a new package document. The ID must be unique.
func (r *PricingPackageRepository) Insert(ctx context.Context, pkg domain.PricingPackage) error {
	if r == nil || r.base == nil {
		return errors.New("pricing package repository not initialised")
	}
	packageID := strings.TrimSpace(pkg.ID)
	if packageID == "" {
		return errors.New("pricing package repository: package id is required")
	}
	_, err := r.base.Set(ctx, packageID, encodePricingPackageDocument(pkg))
	return err
}

// Update replaces the stored document for an existing package.
func (r *PricingPackageRepository) Update(ctx context.Context, pkg domain.PricingPackage) error {
	if r == nil || r.base == nil {
		return errors.New("pricing package repository not initialised")
	}
	packageID := strings.TrimSpace(pkg.ID)
	if packageID == "" {
		return errors.New("pricing package repository: package id is required")
	}
	if _, err := r.base.Get(ctx, packageID); err != nil {
		return err
	}
	_, err := r.base.Set(ctx, packageID, encodePricingPackageDocument(pkg))
	return err
}

// FindByID fetches a single package.
func (r *PricingPackageRepository) FindByID(ctx context.Context, packageID string) (domain.PricingPackage, error) {
	if r == nil || r.base == nil {
		return domain.PricingPackage{}, errors.New("pricing package repository not initialised")
	}
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return domain.PricingPackage{}, errors.New("pricing package repository: package id is required")
	}
	doc, err := r.base.Get(ctx, packageID)
	if err != nil {
		return domain.PricingPackage{}, err
	}
	return decodePricingPackageDocument(doc.ID, doc.Data), nil
}

// List returns packages ordered by most recent update.
func (r *PricingPackageRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.PricingPackage], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.PricingPackage]{}, errors.New("pricing package repository not initialised")
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
			return domain.CursorPage[domain.PricingPackage]{}, fmt.Errorf("pricing package repository: invalid page token: %w", err)
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
		return domain.CursorPage[domain.PricingPackage]{}, err
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

	items := make([]domain.PricingPackage, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodePricingPackageDocument(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.PricingPackage]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type pricingPackageDocument struct {
	Name        string    `firestore:"name"`
	Description string    `firestore:"description,omitempty"`
	Active      bool      `firestore:"active"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func encodePricingPackageDocument(pkg domain.PricingPackage) pricingPackageDocument {
	return pricingPackageDocument{
		Name:        strings.TrimSpace(pkg.Name),
		Description: strings.TrimSpace(pkg.Description),
		Active:      pkg.Active,
		CreatedAt:   pkg.CreatedAt.UTC(),
		UpdatedAt:   pkg.UpdatedAt.UTC(),
	}
}

func decodePricingPackageDocument(id string, doc pricingPackageDocument) domain.PricingPackage {
	return domain.PricingPackage{
		ID:          id,
		Name:        strings.TrimSpace(doc.Name),
		Description: doc.Description,
		Active:      doc.Active,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

var _ repositories.PricingPackageRepository = (*PricingPackageRepository)(nil)
