package storage

import (
	"context"
	"fmt"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// MemoryStorage is an in-process ObjectStorage. It backs tests and
// STORAGE_DRIVER=memory dry runs; nothing survives the process.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	puts    int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (m *MemoryStorage) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("memory stat %s: %w", key, ErrNotFound)
	}
	return obj.info(key), nil
}

func (m *MemoryStorage) GetObject(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ObjectInfo{}, fmt.Errorf("memory get %s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), obj.data...), obj.info(key), nil
}

func (m *MemoryStorage) PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryObject{
		data:        append([]byte(nil), data...),
		contentType: opts.ContentType,
		metadata:    normalizeMetadata(opts.Metadata),
	}
	m.puts++
	return nil
}

// Puts returns the number of physical writes performed so far.
func (m *MemoryStorage) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Keys returns the stored keys in no particular order.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

var _ ObjectStorage = (*MemoryStorage)(nil)

func (o memoryObject) info(key string) ObjectInfo {
	meta := make(map[string]string, len(o.metadata))
	for k, v := range o.metadata {
		meta[k] = v
	}
	return ObjectInfo{
		Key:         key,
		Size:        int64(len(o.data)),
		ContentType: o.contentType,
		Metadata:    meta,
	}
}
