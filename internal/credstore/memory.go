package credstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store. The zero value is ready to use.
type Memory struct {
	mu     sync.RWMutex
	record Record
}

// NewMemory returns a Memory store seeded with r.
func NewMemory(r Record) *Memory {
	return &Memory{record: copyRecord(r)}
}

// Get returns a copy of the stored record.
func (m *Memory) Get(_ context.Context) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRecord(m.record), nil
}

// Set replaces the stored record.
func (m *Memory) Set(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = copyRecord(r)
	return nil
}

// Clear removes the token and the profile.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = Record{}
	return nil
}

// copyRecord keeps callers from mutating the stored profile.
func copyRecord(r Record) Record {
	if r.User == nil {
		return r
	}
	u := *r.User
	return Record{Token: r.Token, User: &u}
}

var _ Store = (*Memory)(nil)
