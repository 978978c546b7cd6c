// Package memory provides a process-local invoice store.
// It backs STORAGE_DRIVER=memory and the service tests; data is lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"facturier/internal/core/apperror"
	"facturier/internal/core/id"
	"facturier/internal/domain/invoice"
)

// InvoiceStore keeps invoices in maps guarded by a RWMutex.
// It enforces the same (user, number) uniqueness as the PostgreSQL index.
type InvoiceStore struct {
	mu       sync.RWMutex
	byID     map[id.ID]*invoice.Invoice
	byNumber map[numberKey]id.ID
}

type numberKey struct {
	userID string
	number string
}

// NewInvoiceStore creates an empty store.
func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{
		byID:     make(map[id.ID]*invoice.Invoice),
		byNumber: make(map[numberKey]id.ID),
	}
}

var _ invoice.Repository = (*InvoiceStore)(nil)

// Create implements invoice.Repository.
func (s *InvoiceStore) Create(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := numberKey{userID: inv.UserID, number: inv.Number}
	if _, taken := s.byNumber[key]; taken {
		return invoice.ErrNumberTaken
	}
	if _, exists := s.byID[inv.ID]; exists {
		return apperror.NewConflict("invoice already exists").WithDetail("id", inv.ID)
	}

	stored := *inv
	s.byID[inv.ID] = &stored
	s.byNumber[key] = inv.ID
	return nil
}

// GetByID implements invoice.Repository.
func (s *InvoiceStore) GetByID(_ context.Context, userID string, invoiceID id.ID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[invoiceID]
	if !ok || stored.UserID != userID {
		return nil, apperror.NewNotFound("invoice", invoiceID)
	}
	out := *stored
	return &out, nil
}

// UpdateNumber implements invoice.Repository.
func (s *InvoiceStore) UpdateNumber(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[inv.ID]
	if !ok || stored.UserID != inv.UserID {
		return apperror.NewNotFound("invoice", inv.ID)
	}
	if stored.Version != inv.Version {
		return apperror.NewConcurrentModification("invoice", inv.ID)
	}

	newKey := numberKey{userID: inv.UserID, number: inv.Number}
	if owner, taken := s.byNumber[newKey]; taken && owner != inv.ID {
		return invoice.ErrNumberTaken
	}

	delete(s.byNumber, numberKey{userID: stored.UserID, number: stored.Number})
	s.byNumber[newKey] = inv.ID

	stored.Number = inv.Number
	stored.NumberingFormat = inv.NumberingFormat
	stored.UpdatedAt = inv.UpdatedAt
	stored.Version++
	inv.Version = stored.Version
	return nil
}

// List implements invoice.Repository.
func (s *InvoiceStore) List(_ context.Context, userID string, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	matched := lo.FilterMap(lo.Values(s.byID), func(inv *invoice.Invoice, _ int) (*invoice.Invoice, bool) {
		if inv.UserID != userID || !matches(inv, filter) {
			return nil, false
		}
		out := *inv
		return &out, true
	})
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*invoice.Invoice{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// FindByNumber implements invoice.Repository.
func (s *InvoiceStore) FindByNumber(_ context.Context, userID, number string, excludeID id.ID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.byNumber[numberKey{userID: userID, number: number}]
	if !ok || (!id.IsNil(excludeID) && owner == excludeID) {
		return nil, nil
	}
	out := *s.byID[owner]
	return &out, nil
}

// Len returns the number of stored invoices.
func (s *InvoiceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func matches(inv *invoice.Invoice, filter invoice.ListFilter) bool {
	if filter.Prefix != "" && !strings.HasPrefix(inv.Number, filter.Prefix) {
		return false
	}
	if filter.Year != 0 {
		scope, ok := inv.Record().ScopeDate()
		if !ok || scope.Year() != filter.Year {
			return false
		}
	}
	return true
}
