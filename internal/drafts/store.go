package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
	"github.com/mahuwo/mahuwo-backend/pkg/redis"
)

// Store persists drafts for the length of an editing session.
type Store interface {
	Get(ctx context.Context, id string) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, id string) error
}

func draftNotFound(id string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "draft not found").WithDetails(map[string]any{"draft_id": id})
}

// remainingTTL is the sliding ttl capped by what is left of the draft's
// absolute lifetime. A non-positive result means the draft is over age.
func remainingTTL(d *Draft, ttl, maxAge time.Duration, now time.Time) time.Duration {
	if maxAge <= 0 || d.CreatedAt.IsZero() {
		return ttl
	}
	left := d.CreatedAt.Add(maxAge).Sub(now)
	if ttl > 0 && ttl < left {
		return ttl
	}
	return left
}

func overAge(d *Draft, maxAge time.Duration, now time.Time) bool {
	return maxAge > 0 && !d.CreatedAt.IsZero() && !now.Before(d.CreatedAt.Add(maxAge))
}

// RedisStore keeps drafts as JSON under a TTL that is refreshed on every save
// but never extends past maxAge from the draft's creation.
type RedisStore struct {
	kv     redis.KV
	ttl    time.Duration
	maxAge time.Duration
	now    func() time.Time
}

func NewRedisStore(kv redis.KV, ttl, maxAge time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	if maxAge < 0 {
		return nil, fmt.Errorf("draft max age must not be negative")
	}
	return &RedisStore{kv: kv, ttl: ttl, maxAge: maxAge, now: time.Now}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Draft, error) {
	raw, err := s.kv.Get(ctx, s.kv.DraftKey(id))
	if err != nil {
		if redis.IsNil(err) {
			return nil, draftNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode draft")
	}
	if overAge(&d, s.maxAge, s.now()) {
		return nil, draftNotFound(id)
	}
	if d.Media == nil {
		d.Media = NewMediaIndex(0)
	}
	return &d, nil
}

func (s *RedisStore) Save(ctx context.Context, d *Draft) error {
	ttl := remainingTTL(d, s.ttl, s.maxAge, s.now())
	if ttl <= 0 {
		if err := s.Delete(ctx, d.ID); err != nil {
			return err
		}
		return draftNotFound(d.ID)
	}
	body, err := json.Marshal(d)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode draft")
	}
	if err := s.kv.Set(ctx, s.kv.DraftKey(d.ID), string(body), ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Del(ctx, s.kv.DraftKey(id)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete draft")
	}
	return nil
}

// MemoryStore is a process-local Store used in tests and single-node dev runs.
type MemoryStore struct {
	mu     sync.RWMutex
	ttl    time.Duration
	maxAge time.Duration
	now    func() time.Time
	drafts map[string]memoryEntry
}

type memoryEntry struct {
	body      []byte
	expiresAt time.Time
}

func NewMemoryStore(ttl, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, maxAge: maxAge, now: time.Now, drafts: map[string]memoryEntry{}}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Draft, error) {
	s.mu.RLock()
	entry, ok := s.drafts[id]
	s.mu.RUnlock()
	if !ok || (!entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)) {
		return nil, draftNotFound(id)
	}
	var d Draft
	if err := json.Unmarshal(entry.body, &d); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode draft")
	}
	if overAge(&d, s.maxAge, s.now()) {
		return nil, draftNotFound(id)
	}
	return &d, nil
}

func (s *MemoryStore) Save(_ context.Context, d *Draft) error {
	now := s.now()
	ttl := remainingTTL(d, s.ttl, s.maxAge, now)
	if s.maxAge > 0 && ttl <= 0 {
		s.mu.Lock()
		delete(s.drafts, d.ID)
		s.mu.Unlock()
		return draftNotFound(d.ID)
	}
	body, err := json.Marshal(d)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode draft")
	}
	entry := memoryEntry{body: body}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.mu.Lock()
	s.drafts[d.ID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return nil
}
