package fs

import (
	"bytes"
	"context"
	"io"
	iofs "io/fs"
	"sort"
	"strings"
	"sync"
)

// MemoryClient is an in-memory ObjectClient for testing. It stores objects
// in a map without any network or filesystem dependency. Thread-safe for
// concurrent use.
type MemoryClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryClient creates an empty in-memory object client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		objects: make(map[string][]byte),
	}
}

// Head returns the object's size.
func (m *MemoryClient) Head(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return 0, iofs.ErrNotExist
	}
	return int64(len(data)), nil
}

// Get returns a stream over the requested byte range.
func (m *MemoryClient) Get(_ context.Context, key string, off, length int64) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, iofs.ErrNotExist
	}
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	end := int64(len(data))
	if length >= 0 && off+length < end {
		end = off + length
	}

	// Copy to prevent mutation while the stream is consumed.
	copied := make([]byte, end-off)
	copy(copied, data[off:end])
	return io.NopCloser(bytes.NewReader(copied)), nil
}

// Put stores body as the object's content.
func (m *MemoryClient) Put(_ context.Context, key string, body io.Reader, _ int64, exclusive bool) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if exclusive {
		if _, ok := m.objects[key]; ok {
			return iofs.ErrExist
		}
	}
	m.objects[key] = data
	return nil
}

// Upload streams body as the object's content.
func (m *MemoryClient) Upload(ctx context.Context, key string, body io.Reader) error {
	return m.Put(ctx, key, body, -1, false)
}

// Delete removes the given keys. Absent keys are ignored.
func (m *MemoryClient) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.objects, key)
	}
	return nil
}

// List returns all keys starting with prefix, sorted.
func (m *MemoryClient) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.objects {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored objects.
func (m *MemoryClient) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
