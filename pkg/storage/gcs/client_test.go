package gcs

import (
	"context"
	"strings"
	"testing"

	"github.com/mahuwo/mahuwo-backend/pkg/config"
)

func TestPublicURLEscapesSegments(t *testing.T) {
	got := PublicURL("https://cdn.example.com/", "media", "/listings/a b/photo#1.jpg")
	want := "https://cdn.example.com/media/listings/a%20b/photo%231.jpg"
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestNewClientRequiresBucket(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCSConfig{}, config.GCPConfig{}, nil); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close should be a no-op, got %v", err)
	}
	if c.Bucket() != "" || c.PublicURL("k") != "" {
		t.Fatal("nil client should expose empty values")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("", "bucket")
	var _ ObjectStore = store

	if err := store.Put(ctx, "images/a.jpg", "image/jpeg", strings.NewReader("jpeg")); err != nil {
		t.Fatalf("put: %v", err)
	}
	obj, ok := store.Object("images/a.jpg")
	if !ok || string(obj.Data) != "jpeg" || obj.ContentType != "image/jpeg" {
		t.Fatalf("unexpected object %+v ok=%v", obj, ok)
	}
	if got := store.PublicURL("images/a.jpg"); got != "https://storage.googleapis.com/bucket/images/a.jpg" {
		t.Fatalf("unexpected url %s", got)
	}
	if err := store.Delete(ctx, "images/a.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "images/a.jpg"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}
