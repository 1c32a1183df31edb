package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Storage used for local runs without a bucket.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

var _ Storage = (*Memory)(nil)

func NewMemory(baseURL string) *Memory {
	return &Memory{objects: map[string]memoryObject{}, baseURL: baseURL}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objects[key] = memoryObject{data: cp, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *Memory) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", &Error{Op: "sign", Key: key, Err: ErrNotFound}
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, key, int(ttl.Seconds())), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Get returns a stored object.
func (m *Memory) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, obj.contentType, ok
}
