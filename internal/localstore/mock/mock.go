package mock

import (
	"context"
	"sync"

	"github.com/jon4hz/loaderdesk/internal/localstore"
)

var _ localstore.Store = (*MockStore)(nil)

// MockStore is an in-memory implementation of localstore.Store for testing.
type MockStore struct {
	mu      sync.RWMutex
	entries map[string][]byte

	// Error simulation
	GetError    error
	SetError    error
	DeleteError error

	// KeySetErrors fail writes of single keys.
	KeySetErrors map[string]error

	// SetCalls counts successful writes per key.
	SetCalls map[string]int
}

// NewMockStore creates a new MockStore instance.
func NewMockStore() *MockStore {
	return &MockStore{
		entries:      make(map[string][]byte),
		SetCalls:     make(map[string]int),
		KeySetErrors: make(map[string]error),
	}
}

func (m *MockStore) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	data, ok := m.entries[name]
	if !ok {
		return nil, localstore.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MockStore) Set(_ context.Context, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetError != nil {
		return m.SetError
	}
	if err := m.KeySetErrors[name]; err != nil {
		return err
	}
	m.entries[name] = append([]byte(nil), value...)
	m.SetCalls[name]++
	return nil
}

func (m *MockStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.entries, name)
	return nil
}

func (m *MockStore) Close() error {
	return nil
}

// Raw returns the stored bytes of name, or nil.
func (m *MockStore) Raw(name string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[name]
}
