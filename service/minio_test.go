package service

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/vedthemaster/lexsy-frontend/config"
)

func TestNewMinioArtifactCache(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
		Prefix:    "previews",
	}

	svc, err := NewMinioArtifactCache(cfg)
	// Creating the client does not connect; the first operation does.
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if svc.bucket != "test" {
		t.Errorf("Expected bucket test, got %s", svc.bucket)
	}
}

func TestMinioArtifactCacheObjectName(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		key      string
		expected string
	}{
		{"with prefix", "previews", "tab-1/doc-1", "previews/tab-1/doc-1.docx"},
		{"nested prefix", "lexsy/previews/", "tab-2/doc-9", "lexsy/previews/tab-2/doc-9.docx"},
		{"no prefix", "", "tab-3/doc-3", "tab-3/doc-3.docx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MinioArtifactCache{config: &config.MinioConfig{Prefix: tt.prefix}}
			if got := svc.objectName(tt.key); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestMinioArtifactCacheMapError(t *testing.T) {
	svc := &MinioArtifactCache{config: &config.MinioConfig{}}

	missing := minio.ErrorResponse{Code: "NoSuchKey", Message: "missing"}
	if err := svc.mapError(missing); !errors.Is(err, ErrArtifactMiss) {
		t.Errorf("Expected ErrArtifactMiss, got %v", err)
	}

	other := minio.ErrorResponse{Code: "AccessDenied", Message: "denied"}
	if err := svc.mapError(other); errors.Is(err, ErrArtifactMiss) {
		t.Error("Did not expect a miss for AccessDenied")
	}
}

func TestMinioArtifactCacheEnsureBucket(t *testing.T) {
	// Note: This requires actual MinIO connection or proper mocking
	t.Skip("MinIO operations require actual MinIO client mock")
}

func TestMinioArtifactCacheWithCancelledContext(t *testing.T) {
	svc, err := NewMinioArtifactCache(&config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
	})
	if err != nil {
		t.Skip("Could not create MinIO client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Put(ctx, "tab/doc", []byte("x")); err == nil {
		t.Error("Expected error with cancelled context")
	}
}

func TestMemoryArtifactCache(t *testing.T) {
	c := NewMemoryArtifactCache(0)
	ctx := context.Background()

	if _, err := c.Get(ctx, "tab/doc"); !errors.Is(err, ErrArtifactMiss) {
		t.Errorf("Expected miss, got %v", err)
	}
	if err := c.Put(ctx, "tab/doc", []byte("artifact")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err := c.Get(ctx, "tab/doc")
	if err != nil || string(data) != "artifact" {
		t.Errorf("Expected cached artifact, got %q, %v", data, err)
	}
	if c.Count() != 1 {
		t.Errorf("Expected 1 item, got %d", c.Count())
	}
}

func TestArtifactKey(t *testing.T) {
	if got := ArtifactKey("tab-1", "doc-1"); got != "tab-1/doc-1" {
		t.Errorf("Unexpected key %s", got)
	}
}
