package storage

import "testing"

func TestBuildProductImagePath(t *testing.T) {
	path, err := BuildObjectPath(PurposeProductImage, PathParams{
		ProductID: "prod123",
		FileName:  "king-fish.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "assets/products/prod123/images/king-fish.jpg"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildProductImageUploadPath(t *testing.T) {
	path, err := BuildObjectPath(PurposeProductImageUpload, PathParams{
		ProductID: "prod123",
		UploadID:  "upload789",
		FileName:  "king-fish.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "uploads/products/prod123/upload789/king-fish.jpg"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildOrderExportPath(t *testing.T) {
	path, err := BuildObjectPath(PurposeOrderExport, PathParams{
		FileName: "orders-2025-03.csv",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "exports/orders/orders-2025-03.csv"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildObjectPathRejectsInvalidSegment(t *testing.T) {
	_, err := BuildObjectPath(PurposeProductImageUpload, PathParams{
		ProductID: "../bad",
		UploadID:  "upload",
		FileName:  "file.png",
	})
	if err == nil {
		t.Fatalf("expected error for invalid segment")
	}
}
