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
	"github.com/freshcatch/api/internal/platform/pagination"
	"github.com/freshcatch/api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository persists catalog product documents.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	return &ProductRepository{base: base}, nil
}

// Insert stores a new product document. The ID must be unique.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	_, err := r.base.Set(ctx, productID, encodeProductDocument(product))
	return err
}

// Update replaces the stored document for an existing product.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	if _, err := r.base.Get(ctx, productID); err != nil {
		return err
	}
	_, err := r.base.Set(ctx, productID, encodeProductDocument(product))
	return err
}

// Archive marks a product inactive without removing its document.
func (r *ProductRepository) Archive(ctx context.Context, productID string, archivedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	updates := []firestore.Update{
		{Path: "active", Value: false},
		{Path: "updatedAt", Value: archivedAt.UTC()},
	}
	_, err := r.base.Update(ctx, productID, updates)
	return err
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(doc.ID, doc.Data, doc.UpdateTime), nil
}

// ListActive returns every active product ordered by catalog code.
func (r *ProductRepository) ListActive(ctx context.Context) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("active", "==", true).OrderBy("code", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, decodeProductDocument(doc.ID, doc.Data, doc.UpdateTime))
	}
	return products, nil
}

// List returns products matching the filter ordered by most recent update.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
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
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("product repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	code := strings.TrimSpace(filter.Code)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		if code != "" {
			q = q.Where("code", "==", code)
		}
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
		return domain.CursorPage[domain.Product]{}, err
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

	items := make([]domain.Product, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeProductDocument(doc.ID, doc.Data, doc.UpdateTime))
	}

	return domain.CursorPage[domain.Product]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type productDocument struct {
	Code          string    `firestore:"code"`
	EnglishName   string    `firestore:"englishName"`
	MalayalamName string    `firestore:"malayalamName,omitempty"`
	Preparation   string    `firestore:"preparation,omitempty"`
	Packaging     string    `firestore:"packaging,omitempty"`
	SizeSpec      string    `firestore:"sizeSpec,omitempty"`
	Description   string    `firestore:"description,omitempty"`
	ImagePath     string    `firestore:"imagePath,omitempty"`
	PriceBronze   *float64  `firestore:"priceBronze,omitempty"`
	PriceSilver   float64   `firestore:"priceSilver"`
	PriceGold     float64   `firestore:"priceGold"`
	PricePlatinum float64   `firestore:"pricePlatinum"`
	PriceDiamond  float64   `firestore:"priceDiamond"`
	Active        bool      `firestore:"active"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func encodeProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		Code:          strings.TrimSpace(product.Code),
		EnglishName:   strings.TrimSpace(product.EnglishName),
		MalayalamName: strings.TrimSpace(product.MalayalamName),
		Preparation:   strings.TrimSpace(product.Preparation),
		Packaging:     strings.TrimSpace(product.Packaging),
		SizeSpec:      strings.TrimSpace(product.SizeSpec),
		Description:   strings.TrimSpace(product.Description),
		ImagePath:     strings.TrimSpace(product.ImagePath),
		PriceSilver:   product.PriceSilver,
		PriceGold:     product.PriceGold,
		PricePlatinum: product.PricePlatinum,
		PriceDiamond:  product.PriceDiamond,
		Active:        product.Active,
		CreatedAt:     product.CreatedAt.UTC(),
		UpdatedAt:     product.UpdatedAt.UTC(),
	}
	if product.PriceBronze != nil {
		value := *product.PriceBronze
		doc.PriceBronze = &value
	}
	return doc
}

func decodeProductDocument(id string, doc productDocument, updateTime time.Time) domain.Product {
	product := domain.Product{
		ID:            id,
		Code:          strings.TrimSpace(doc.Code),
		EnglishName:   strings.TrimSpace(doc.EnglishName),
		MalayalamName: strings.TrimSpace(doc.MalayalamName),
		Preparation:   strings.TrimSpace(doc.Preparation),
		Packaging:     strings.TrimSpace(doc.Packaging),
		SizeSpec:      strings.TrimSpace(doc.SizeSpec),
		Description:   doc.Description,
		ImagePath:     strings.TrimSpace(doc.ImagePath),
		PriceSilver:   doc.PriceSilver,
		PriceGold:     doc.PriceGold,
		PricePlatinum: doc.PricePlatinum,
		PriceDiamond:  doc.PriceDiamond,
		Active:        doc.Active,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
	if doc.PriceBronze != nil {
		value := *doc.PriceBronze
		product.PriceBronze = &value
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = updateTime
	}
	return product
}

func encodeListToken(updatedAt time.Time, docID string) string {
	token, err := pagination.EncodeToken(pagination.Cursor{
		StartAfter: []any{updatedAt.UTC().Format(time.RFC3339Nano), docID},
	})
	if err != nil {
		return ""
	}
	return token
}

func decodeListToken(token string) (time.Time, string, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", errors.New("malformed token payload")
	}
	rawTime, _ := cursor.StartAfter[0].(string)
	rawID, _ := cursor.StartAfter[1].(string)
	tokenTime, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return time.Time{}, "", err
	}
	docID := strings.TrimSpace(rawID)
	if docID == "" {
		return time.Time{}, "", errors.New("malformed token payload")
	}
	return tokenTime, docID, nil
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
