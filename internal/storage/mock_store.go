package storage

import (
	"context"
	"sync"
)

// MockStore provides an in-memory DocumentStore for testing.
type MockStore struct {
	mu       sync.RWMutex
	docs     map[string]string
	writes   int
	loadErr  error
	storeErr error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{docs: make(map[string]string)}
}

func mockKey(loc Location, path string) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	return loc.String() + ":" + p, nil
}

// Load returns a stored document.
func (m *MockStore) Load(ctx context.Context, loc Location, path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.loadErr != nil {
		return "", wrapErr("load", loc, path, m.loadErr)
	}
	key, err := mockKey(loc, path)
	if err != nil {
		return "", wrapErr("load", loc, path, err)
	}
	text, ok := m.docs[key]
	if !ok {
		return "", wrapErr("load", loc, path, ErrNotFound)
	}
	return text, nil
}

// Store saves a document and counts the write.
func (m *MockStore) Store(ctx context.Context, text string, loc Location, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.storeErr != nil {
		return wrapErr("store", loc, path, m.storeErr)
	}
	key, err := mockKey(loc, path)
	if err != nil {
		return wrapErr("store", loc, path, err)
	}
	m.docs[key] = text
	return nil
}

// Exists reports whether a document is present.
func (m *MockStore) Exists(ctx context.Context, loc Location, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, err := mockKey(loc, path)
	if err != nil {
		return false, wrapErr("exists", loc, path, err)
	}
	_, ok := m.docs[key]
	return ok, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Put seeds a document without counting a write.
func (m *MockStore) Put(loc Location, path, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := mockKey(loc, path)
	if err != nil {
		panic(err)
	}
	m.docs[key] = text
}

// Get returns a document without going through Load.
func (m *MockStore) Get(loc Location, path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, err := mockKey(loc, path)
	if err != nil {
		return "", false
	}
	text, ok := m.docs[key]
	return text, ok
}

// Writes returns the number of Store calls, failed ones included.
func (m *MockStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// SetLoadError makes every Load fail with err. Pass nil to clear.
func (m *MockStore) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetStoreError makes every Store fail with err. Pass nil to clear.
func (m *MockStore) SetStoreError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErr = err
}
