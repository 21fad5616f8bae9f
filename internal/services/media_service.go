package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/freshcatch/api/internal/platform/auth"
	"github.com/freshcatch/api/internal/platform/storage"
	"github.com/freshcatch/api/internal/repositories"
)

var (
	// ErrMediaInvalidInput indicates the caller supplied invalid data to a media operation.
	ErrMediaInvalidInput = errors.New("media service: invalid input")
	// ErrMediaNotFound indicates the referenced product or object does not exist.
	ErrMediaNotFound = errors.New("media service: not found")
	// ErrMediaUnavailable indicates the storage backend cannot serve the request.
	ErrMediaUnavailable = errors.New("media service: unavailable")
)

const (
	productImageMaxBytes    = 10 << 20
	productImageUploadTTL   = 15 * time.Minute
	orderExportDownloadTTL  = 5 * time.Minute
	orderExportContentType  = "text/csv"
	orderExportDispositionF = "attachment; filename=%q"
)

var productImageContentTypes = []string{"image/jpeg", "image/png", "image/webp"}

// URLSigner issues signed URLs for direct-to-bucket transfers.
type URLSigner interface {
	SignedURL(ctx context.Context, bucket, object string, opts storage.SignedURLOptions) (storage.SignedURLResult, error)
}

// ObjectCopier moves objects between buckets once an upload is confirmed.
type ObjectCopier interface {
	CopyObject(ctx context.Context, sourceBucket, sourceObject, destBucket, destObject string) error
}

// ProductImageUploadCommand requests a signed upload slot for a product photo.
type ProductImageUploadCommand struct {
	ProductID   string
	FileName    string
	ContentType string
	ContentMD5  string
}

// ProductImageUpload describes where and how the client should upload the image.
type ProductImageUpload struct {
	UploadID   string
	ObjectPath string
	URL        string
	Method     string
	Headers    map[string]string
	ExpiresAt  time.Time
}

// AttachProductImageCommand promotes a completed upload to the product's image.
type AttachProductImageCommand struct {
	ProductID string
	UploadID  string
	FileName  string
}

// SignedDownload carries a time-limited download URL.
type SignedDownload struct {
	URL       string
	ExpiresAt time.Time
}

// MediaService manages product imagery and export downloads backed by object storage.
type MediaService interface {
	CreateProductImageUpload(ctx context.Context, cmd ProductImageUploadCommand) (ProductImageUpload, error)
	AttachProductImage(ctx context.Context, cmd AttachProductImageCommand) (Product, error)
	OrderExportDownloadURL(ctx context.Context, fileName string) (SignedDownload, error)
}

// MediaServiceDeps bundles constructor inputs for the media service.
type MediaServiceDeps struct {
	Products      repositories.ProductRepository
	Signer        URLSigner
	Copier        ObjectCopier
	AssetsBucket  string
	ExportsBucket string
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(context.Context, string, map[string]any)
}

type mediaService struct {
	products      repositories.ProductRepository
	signer        URLSigner
	copier        ObjectCopier
	assetsBucket  string
	exportsBucket string
	now           func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
}

// NewMediaService validates dependencies and returns the storage-backed media service.
func NewMediaService(deps MediaServiceDeps) (MediaService, error) {
	if deps.Products == nil {
		return nil, errors.New("media service: product repository is required")
	}
	if deps.Signer == nil {
		return nil, errors.New("media service: url signer is required")
	}
	if strings.TrimSpace(deps.AssetsBucket) == "" {
		return nil, errors.New("media service: assets bucket is required")
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &mediaService{
		products:      deps.Products,
		signer:        deps.Signer,
		copier:        deps.Copier,
		assetsBucket:  strings.TrimSpace(deps.AssetsBucket),
		exportsBucket: strings.TrimSpace(deps.ExportsBucket),
		now:           now,
		newID:         newID,
		logger:        logger,
	}, nil
}

func (s *mediaService) CreateProductImageUpload(ctx context.Context, cmd ProductImageUploadCommand) (ProductImageUpload, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return ProductImageUpload{}, fmt.Errorf("%w: product_id is required", ErrMediaInvalidInput)
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return ProductImageUpload{}, s.translateRepoError(err)
	}

	uploadID := s.newID()
	objectPath, err := storage.BuildObjectPath(storage.PurposeProductImageUpload, storage.PathParams{
		ProductID: productID,
		UploadID:  uploadID,
		FileName:  cmd.FileName,
	})
	if err != nil {
		return ProductImageUpload{}, fmt.Errorf("%w: %v", ErrMediaInvalidInput, err)
	}

	result, err := s.signer.SignedURL(ctx, s.assetsBucket, objectPath, storage.SignedURLOptions{
		Upload: &storage.UploadOptions{
			Method:              "PUT",
			ContentType:         cmd.ContentType,
			ContentMD5:          cmd.ContentMD5,
			AllowedContentTypes: productImageContentTypes,
			MaxSize:             productImageMaxBytes,
			ExpiresIn:           productImageUploadTTL,
		},
	})
	if err != nil {
		return ProductImageUpload{}, fmt.Errorf("%w: %v", ErrMediaInvalidInput, err)
	}

	s.logger(ctx, "media.image_upload_created", map[string]any{
		"productId": productID,
		"uploadId":  uploadID,
		"object":    objectPath,
	})

	return ProductImageUpload{
		UploadID:   uploadID,
		ObjectPath: objectPath,
		URL:        result.URL,
		Method:     result.Method,
		Headers:    result.Headers,
		ExpiresAt:  result.ExpiresAt,
	}, nil
}

func (s *mediaService) AttachProductImage(ctx context.Context, cmd AttachProductImageCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product_id is required", ErrMediaInvalidInput)
	}
	if strings.TrimSpace(cmd.UploadID) == "" {
		return Product{}, fmt.Errorf("%w: upload_id is required", ErrMediaInvalidInput)
	}
	if s.copier == nil {
		return Product{}, ErrMediaUnavailable
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	sourcePath, err := storage.BuildObjectPath(storage.PurposeProductImageUpload, storage.PathParams{
		ProductID: productID,
		UploadID:  cmd.UploadID,
		FileName:  cmd.FileName,
	})
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrMediaInvalidInput, err)
	}
	destPath, err := storage.BuildObjectPath(storage.PurposeProductImage, storage.PathParams{
		ProductID: productID,
		FileName:  cmd.FileName,
	})
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrMediaInvalidInput, err)
	}

	if err := s.copier.CopyObject(ctx, s.assetsBucket, sourcePath, s.assetsBucket, destPath); err != nil {
		return Product{}, fmt.Errorf("%w: copy image: %v", ErrMediaUnavailable, err)
	}

	product.ImagePath = destPath
	product.UpdatedAt = s.now().UTC()
	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.logger(ctx, "media.image_attached", map[string]any{
		"productId": productID,
		"object":    destPath,
	})

	return product, nil
}

func (s *mediaService) OrderExportDownloadURL(ctx context.Context, fileName string) (SignedDownload, error) {
	if s.exportsBucket == "" {
		return SignedDownload{}, ErrMediaUnavailable
	}

	objectPath, err := storage.BuildObjectPath(storage.PurposeOrderExport, storage.PathParams{FileName: fileName})
	if err != nil {
		return SignedDownload{}, fmt.Errorf("%w: %v", ErrMediaInvalidInput, err)
	}

	var identity *auth.Identity
	if id, ok := auth.IdentityFromContext(ctx); ok {
		identity = id
	}

	result, err := s.signer.SignedURL(ctx, s.exportsBucket, objectPath, storage.SignedURLOptions{
		Download: &storage.DownloadOptions{
			ExpiresIn:    orderExportDownloadTTL,
			Disposition:  fmt.Sprintf(orderExportDispositionF, fileName),
			ResponseType: orderExportContentType,
			Identity:     identity,
		},
	})
	if err != nil {
		if errors.Is(err, storage.ErrPermissionDenied) {
			return SignedDownload{}, err
		}
		return SignedDownload{}, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}

	return SignedDownload{URL: result.URL, ExpiresAt: result.ExpiresAt}, nil
}

func (s *mediaService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrMediaNotFound
	}
	return ErrMediaUnavailable
}
