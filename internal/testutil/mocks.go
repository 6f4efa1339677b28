package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/udisondev/charsheet/internal/db"
	"github.com/udisondev/charsheet/internal/sheet"
)

// MockStore is an in-memory db.Store for unit tests.
// Set Fail to make every call return ErrSimulated.
type MockStore struct {
	mu     sync.RWMutex
	sheets map[string]*db.Sheet
	Fail   bool
	Saves  int
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{sheets: make(map[string]*db.Sheet)}
}

func (m *MockStore) SaveSheet(_ context.Context, s *db.Sheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrSimulated
	}
	m.sheets[s.Name] = clone(s)
	m.Saves++
	return nil
}

func (m *MockStore) LoadSheet(_ context.Context, name string) (*db.Sheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return nil, ErrSimulated
	}
	s, ok := m.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrNotFound, name)
	}
	// copy so callers cannot mutate stored records
	return clone(s), nil
}

func (m *MockStore) ListSheets(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return nil, ErrSimulated
	}
	names := make([]string, 0, len(m.sheets))
	for n := range m.sheets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

func (m *MockStore) DeleteSheet(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrSimulated
	}
	if _, ok := m.sheets[name]; !ok {
		return fmt.Errorf("%w: %s", db.ErrNotFound, name)
	}
	delete(m.sheets, name)
	return nil
}

func (m *MockStore) Close() error { return nil }

func clone(s *db.Sheet) *db.Sheet {
	out := *s
	out.Records = make([]sheet.Record, len(s.Records))
	for i, r := range s.Records {
		out.Records[i] = sheet.Record{Kind: r.Kind, Fields: slices.Clone(r.Fields)}
	}
	return &out
}
