package numbering

import (
	"context"
	"strings"
	"sync"

	"facturier/internal/core/id"
)

// MockSource is an in-memory Source for tests.
// ListFunc and FindFunc, when set, override the default behaviour.
type MockSource struct {
	mu      sync.Mutex
	records map[string][]Record

	ListFunc func(ctx context.Context, userID string, q Query) ([]Record, error)
	FindFunc func(ctx context.Context, userID, number string, excludeID id.ID) (*Record, error)
}

// NewMockSource creates an empty MockSource.
func NewMockSource() *MockSource {
	return &MockSource{records: make(map[string][]Record)}
}

// Add stores records for userID.
func (m *MockSource) Add(userID string, records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = append(m.records[userID], records...)
}

// ListInvoices implements Source.
func (m *MockSource) ListInvoices(ctx context.Context, userID string, q Query) ([]Record, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, q)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, r := range m.records[userID] {
		if q.Prefix != "" && !strings.HasPrefix(r.Number, q.Prefix) {
			continue
		}
		if q.Year != 0 {
			if d, ok := r.ScopeDate(); !ok || d.Year() != q.Year {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// FindInvoiceByNumber implements Source.
func (m *MockSource) FindInvoiceByNumber(ctx context.Context, userID, number string, excludeID id.ID) (*Record, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, userID, number, excludeID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records[userID] {
		if r.Number == number && (id.IsNil(excludeID) || r.ID != excludeID) {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}
