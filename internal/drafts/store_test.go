package drafts

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
)

type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) DraftKey(id string) string { return "mh:draft:" + id }

func sampleDraft() *Draft {
	d := NewDraft("d-1", "listing-1", 5, time.Unix(100, 0).UTC())
	d.Media.LoadImages([]ImageRecord{{ID: "img-1", URL: "https://cdn/1.jpg"}})
	d.Media.AddVideo(widgetResult("a.mp4"))
	d.Snapshot = Snapshot{"img-1"}
	d.Flags.Updated = true
	d.recordError(ErrorPublishFailed, nil, time.Unix(200, 0).UTC())
	return d
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store, err := NewRedisStore(kv, time.Hour, 0)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	if err := store.Save(ctx, sampleDraft()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if kv.ttls["mh:draft:d-1"] != time.Hour {
		t.Fatalf("expected ttl applied, got %v", kv.ttls["mh:draft:d-1"])
	}

	got, err := store.Get(ctx, "d-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ListingID != "listing-1" || len(got.Media.Images) != 1 || got.Media.Videos[0].ID != "listingVideos[0]" {
		t.Fatalf("unexpected draft %+v", got)
	}
	if !got.Flags.Updated || got.Snapshot[0] != "img-1" {
		t.Fatalf("flags or snapshot lost: %+v", got)
	}
	if _, ok := got.Errors[ErrorPublishFailed]; !ok {
		t.Fatalf("error record lost: %+v", got.Errors)
	}

	if err := store.Delete(ctx, "d-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "d-1"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewRedisStoreValidates(t *testing.T) {
	if _, err := NewRedisStore(nil, time.Hour, 0); err == nil {
		t.Fatal("expected error for nil kv")
	}
	if _, err := NewRedisStore(newFakeKV(), 0, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	kv := newFakeKV()
	kv.data["mh:draft:bad"] = "{not json"
	store, _ := NewRedisStore(kv, time.Hour, 0)
	if _, err := store.Get(context.Background(), "bad"); !pkgerrors.HasCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestMemoryStoreExpiresAndCopies(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	store := NewMemoryStore(time.Minute, 0)
	store.now = func() time.Time { return now }

	d := sampleDraft()
	if err := store.Save(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}

	d.Media.Videos = nil
	got, err := store.Get(ctx, "d-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Media.Videos) != 1 {
		t.Fatal("stored draft must not alias the caller's value")
	}

	now = now.Add(time.Minute)
	if _, err := store.Get(ctx, "d-1"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestRedisStoreCapsTTLAtMaxAge(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store, err := NewRedisStore(kv, 12*time.Hour, 20*time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	created := time.Unix(100, 0).UTC()
	now := created.Add(15 * time.Hour)
	store.now = func() time.Time { return now }

	if err := store.Save(ctx, sampleDraft()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := kv.ttls["mh:draft:d-1"]; got != 5*time.Hour {
		t.Fatalf("expected ttl capped to remaining lifetime, got %v", got)
	}

	now = created.Add(20 * time.Hour)
	if _, err := store.Get(ctx, "d-1"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected over-age draft to be gone, got %v", err)
	}
	if err := store.Save(ctx, sampleDraft()); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected save of over-age draft to fail, got %v", err)
	}
	if _, ok := kv.data["mh:draft:d-1"]; ok {
		t.Fatal("over-age draft should be deleted")
	}
}

func TestMemoryStoreMaxAgeOutlastsSlidingTTL(t *testing.T) {
	ctx := context.Background()
	created := time.Unix(100, 0).UTC()
	now := created
	store := NewMemoryStore(12*time.Hour, 20*time.Hour)
	store.now = func() time.Time { return now }

	d := sampleDraft()
	for _, step := range []time.Duration{0, 10 * time.Hour, 19 * time.Hour} {
		now = created.Add(step)
		if err := store.Save(ctx, d); err != nil {
			t.Fatalf("save at %v: %v", step, err)
		}
	}
	now = created.Add(20 * time.Hour)
	if _, err := store.Get(ctx, "d-1"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected expiry at max age, got %v", err)
	}
}
