package invoice

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"facturier/internal/core/id"
	"facturier/internal/domain/numbering"
)

// ErrNumberTaken is returned by Repository writes that would give a user two
// invoices with the same number.
var ErrNumberTaken = errors.New("invoice number already taken")

// ListFilter narrows Repository.List. Zero values mean "no filter".
type ListFilter struct {
	// Prefix keeps invoices whose number starts with it
	Prefix string

	// Year keeps invoices whose scope date (created_at, else issue_date) falls in it
	Year int

	// Limit 0 returns everything
	Limit  int
	Offset int
}

// Repository persists invoices. Every method is scoped to one user.
type Repository interface {
	// Create inserts inv. Returns ErrNumberTaken on a number collision.
	Create(ctx context.Context, inv *Invoice) error

	// GetByID returns the user's invoice or an apperror not-found error.
	GetByID(ctx context.Context, userID string, invoiceID id.ID) (*Invoice, error)

	// UpdateNumber stores inv.Number and inv.NumberingFormat if inv.Version is
	// still current, then bumps inv.Version. Returns ErrNumberTaken on a number
	// collision and an apperror concurrent-modification error on a stale version.
	UpdateNumber(ctx context.Context, inv *Invoice) error

	// List returns the user's invoices ordered by creation, oldest first.
	List(ctx context.Context, userID string, filter ListFilter) ([]*Invoice, error)

	// FindByNumber returns the user's invoice with exactly number, skipping
	// excludeID when it is not Nil. Returns nil, nil when there is none.
	FindByNumber(ctx context.Context, userID, number string, excludeID id.ID) (*Invoice, error)
}

// NumberingSource exposes a Repository as the numbering storage collaborator.
type NumberingSource struct {
	repo Repository
}

// NewNumberingSource wraps repo.
func NewNumberingSource(repo Repository) *NumberingSource {
	return &NumberingSource{repo: repo}
}

var _ numbering.Source = (*NumberingSource)(nil)

// ListInvoices implements numbering.Source.
func (s *NumberingSource) ListInvoices(ctx context.Context, userID string, q numbering.Query) ([]numbering.Record, error) {
	invoices, err := s.repo.List(ctx, userID, ListFilter{Prefix: q.Prefix, Year: q.Year})
	if err != nil {
		return nil, err
	}
	return lo.Map(invoices, func(inv *Invoice, _ int) numbering.Record {
		return inv.Record()
	}), nil
}

// FindInvoiceByNumber implements numbering.Source.
func (s *NumberingSource) FindInvoiceByNumber(ctx context.Context, userID, number string, excludeID id.ID) (*numbering.Record, error) {
	inv, err := s.repo.FindByNumber(ctx, userID, number, excludeID)
	if err != nil || inv == nil {
		return nil, err
	}
	rec := inv.Record()
	return &rec, nil
}
