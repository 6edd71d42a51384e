package cli

import (
	"context"
	"sync"

	"github.com/alnah/go-eventadmin/internal/config"
	"github.com/alnah/go-eventadmin/internal/credstore"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock StoreFactory
// ---------------------------------------------------------------------------

// mockStoreFactory hands out the same in-memory store on every Open, so the
// record survives across commands of one test.
type mockStoreFactory struct {
	OpenFunc func(ctx context.Context, cfg config.Config) (credstore.Store, error)

	store *credstore.Memory

	mu        sync.Mutex
	openCalls int
}

func (m *mockStoreFactory) Open(ctx context.Context, cfg config.Config) (credstore.Store, error) {
	m.mu.Lock()
	m.openCalls++
	m.mu.Unlock()

	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, cfg)
	}
	return m.store, nil
}

func (m *mockStoreFactory) OpenCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCalls
}

// Compile-time interface verification.
var (
	_ ConfigLoader = (*mockConfigLoader)(nil)
	_ StoreFactory = (*mockStoreFactory)(nil)
)
