package gcs

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStore is an in-process ObjectStore for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	bucket  string
	objects map[string]MemoryObject
}

type MemoryObject struct {
	ContentType string
	Data        []byte
}

func NewMemoryStore(baseURL, bucket string) *MemoryStore {
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com"
	}
	return &MemoryStore{baseURL: baseURL, bucket: bucket, objects: map[string]MemoryObject{}}
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = MemoryObject{ContentType: contentType, Data: buf.Bytes()}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return PublicURL(m.baseURL, m.bucket, key)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Object returns the stored object at key.
func (m *MemoryStore) Object(key string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
