package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freshcatch/api/internal/platform/storage"
)

var mediaTestNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

type stubURLSigner struct {
	result storage.SignedURLResult
	err    error

	lastBucket string
	lastObject string
	lastOpts   storage.SignedURLOptions
}

func (s *stubURLSigner) SignedURL(_ context.Context, bucket, object string, opts storage.SignedURLOptions) (storage.SignedURLResult, error) {
	s.lastBucket = bucket
	s.lastObject = object
	s.lastOpts = opts
	if s.err != nil {
		return storage.SignedURLResult{}, s.err
	}
	return s.result, nil
}

type stubObjectCopier struct {
	copies [][4]string
	err    error
}

func (s *stubObjectCopier) CopyObject(_ context.Context, sourceBucket, sourceObject, destBucket, destObject string) error {
	if s.err != nil {
		return s.err
	}
	s.copies = append(s.copies, [4]string{sourceBucket, sourceObject, destBucket, destObject})
	return nil
}

type mediaFixture struct {
	service  MediaService
	products *stubProductRepository
	signer   *stubURLSigner
	copier   *stubObjectCopier
}

func newMediaFixture(t *testing.T, products *stubProductRepository) *mediaFixture {
	t.Helper()
	signer := &stubURLSigner{result: storage.SignedURLResult{
		URL:       "https://storage.example/signed",
		Method:    "PUT",
		ExpiresAt: mediaTestNow.Add(15 * time.Minute),
		Headers:   map[string]string{"Content-Type": "image/jpeg"},
	}}
	copier := &stubObjectCopier{}
	svc, err := NewMediaService(MediaServiceDeps{
		Products:      products,
		Signer:        signer,
		Copier:        copier,
		AssetsBucket:  "freshcatch-assets",
		ExportsBucket: "freshcatch-exports",
		Clock:         func() time.Time { return mediaTestNow },
		IDGenerator:   func() string { return "upload-1" },
	})
	if err != nil {
		t.Fatalf("new media service: %v", err)
	}
	return &mediaFixture{service: svc, products: products, signer: signer, copier: copier}
}

func TestMediaServiceCreateProductImageUpload(t *testing.T) {
	f := newMediaFixture(t, newStubProductRepository(activeProduct("prod-1", 10)))

	upload, err := f.service.CreateProductImageUpload(context.Background(), ProductImageUploadCommand{
		ProductID:   "prod-1",
		FileName:    "king-fish.jpg",
		ContentType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("create upload: %v", err)
	}
	if upload.UploadID != "upload-1" {
		t.Fatalf("expected upload-1, got %s", upload.UploadID)
	}
	if upload.ObjectPath != "uploads/products/prod-1/upload-1/king-fish.jpg" {
		t.Fatalf("unexpected object path %s", upload.ObjectPath)
	}
	if upload.URL != "https://storage.example/signed" || upload.Method != "PUT" {
		t.Fatalf("unexpected signed result %+v", upload)
	}
	if f.signer.lastBucket != "freshcatch-assets" {
		t.Fatalf("expected assets bucket, got %s", f.signer.lastBucket)
	}
	if f.signer.lastOpts.Upload == nil || f.signer.lastOpts.Upload.MaxSize != productImageMaxBytes {
		t.Fatalf("expected upload options with size cap, got %+v", f.signer.lastOpts)
	}
}

func TestMediaServiceCreateProductImageUploadUnknownProduct(t *testing.T) {
	f := newMediaFixture(t, newStubProductRepository())

	_, err := f.service.CreateProductImageUpload(context.Background(), ProductImageUploadCommand{
		ProductID:   "missing",
		FileName:    "fish.jpg",
		ContentType: "image/jpeg",
	})
	if !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestMediaServiceCreateProductImageUploadRejectsTraversal(t *testing.T) {
	f := newMediaFixture(t, newStubProductRepository(activeProduct("prod-1", 10)))

	_, err := f.service.CreateProductImageUpload(context.Background(), ProductImageUploadCommand{
		ProductID:   "prod-1",
		FileName:    "../secrets.json",
		ContentType: "image/jpeg",
	})
	if !errors.Is(err, ErrMediaInvalidInput) {
		t.Fatalf("expected ErrMediaInvalidInput, got %v", err)
	}
}

func TestMediaServiceAttachProductImage(t *testing.T) {
	f := newMediaFixture(t, newStubProductRepository(activeProduct("prod-1", 10)))

	product, err := f.service.AttachProductImage(context.Background(), AttachProductImageCommand{
		ProductID: "prod-1",
		UploadID:  "upload-1",
		FileName:  "king-fish.jpg",
	})
	if err != nil {
		t.Fatalf("attach image: %v", err)
	}
	if product.ImagePath != "assets/products/prod-1/images/king-fish.jpg" {
		t.Fatalf("unexpected image path %s", product.ImagePath)
	}
	if !product.UpdatedAt.Equal(mediaTestNow) {
		t.Fatalf("expected updatedAt %v, got %v", mediaTestNow, product.UpdatedAt)
	}
	if len(f.copier.copies) != 1 {
		t.Fatalf("expected one copy, got %d", len(f.copier.copies))
	}
	moved := f.copier.copies[0]
	if moved[1] != "uploads/products/prod-1/upload-1/king-fish.jpg" || moved[3] != "assets/products/prod-1/images/king-fish.jpg" {
		t.Fatalf("unexpected copy %v", moved)
	}
	stored := f.products.products["prod-1"]
	if stored.ImagePath != product.ImagePath {
		t.Fatalf("expected persisted image path, got %s", stored.ImagePath)
	}
}

func TestMediaServiceAttachProductImageCopyFailure(t *testing.T) {
	f := newMediaFixture(t, newStubProductRepository(activeProduct("prod-1", 10)))
	f.copier.err = errors.New("copy failed")

	_, err := f.service.AttachProductImage(context.Background(), AttachProductImageCommand{
		ProductID: "prod-1",
		UploadID:  "upload-1",
		FileName:  "fish.jpg",
	})
	if !errors.Is(err, ErrMediaUnavailable) {
		t.Fatalf("expected ErrMediaUnavailable, got %v", err)
	}
	if f.products.products["prod-1"].ImagePath != "" {
		t.Fatalf("image path must not change when copy fails")
	}
}

func TestMediaServiceOrderExportDownloadURL(t *testing.T) {
	f := newMediaFixture(t, newStubProductRepository())

	download, err := f.service.OrderExportDownloadURL(context.Background(), "orders-2025-03.csv")
	if err != nil {
		t.Fatalf("export url: %v", err)
	}
	if download.URL != "https://storage.example/signed" {
		t.Fatalf("unexpected url %s", download.URL)
	}
	if f.signer.lastBucket != "freshcatch-exports" {
		t.Fatalf("expected exports bucket, got %s", f.signer.lastBucket)
	}
	if f.signer.lastObject != "exports/orders/orders-2025-03.csv" {
		t.Fatalf("unexpected object %s", f.signer.lastObject)
	}
}

func TestMediaServiceOrderExportPermissionDenied(t *testing.T) {
	f := newMediaFixture(t, newStubProductRepository())
	f.signer.err = storage.ErrPermissionDenied

	_, err := f.service.OrderExportDownloadURL(context.Background(), "orders.csv")
	if !errors.Is(err, storage.ErrPermissionDenied) {
		t.Fatalf("expected permission denied passthrough, got %v", err)
	}
}
