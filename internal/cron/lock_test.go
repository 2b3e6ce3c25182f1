package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryRedis struct {
	data map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryRedis{data: map[string]string{}}
	first, err := NewRedisLock(store, "mahuwo:cron:lock:test", 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(store, "mahuwo:cron:lock:test", 0)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire, got %v %v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("second instance should not acquire a held lock")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non owner: %v", err)
	}
	if len(store.data) != 1 {
		t.Fatalf("non owner release must keep the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after release")
	}
}
