// Package numbering assigns and validates invoice numbers for a user.
//
// The Service is the only entry point used by the invoice request path. It reads
// the user's invoices through a Source and delegates the rules to core/numerator.
package numbering

import (
	"context"
	"time"

	"github.com/samber/lo"

	"facturier/internal/core/id"
)

// Record is the read-only view of an invoice the numbering rules need.
type Record struct {
	ID        id.ID
	Number    string
	IssueDate *time.Time
	CreatedAt *time.Time
}

// ScopeDate returns the date deciding which year/month an invoice belongs to:
// CreatedAt when present, IssueDate otherwise, in UTC.
func (r Record) ScopeDate() (time.Time, bool) {
	if r.CreatedAt != nil {
		return r.CreatedAt.UTC(), true
	}
	if r.IssueDate != nil {
		return r.IssueDate.UTC(), true
	}
	return time.Time{}, false
}

// Query narrows ListInvoices. Zero values mean "no filter".
type Query struct {
	// Prefix keeps invoices whose number starts with it
	Prefix string
	// Year keeps invoices whose scope date falls in it
	Year int
}

// Source is the storage collaborator. Implementations must return a consistent
// snapshot of the user's invoices.
type Source interface {
	// ListInvoices returns the user's invoices matching q.
	ListInvoices(ctx context.Context, userID string, q Query) ([]Record, error)

	// FindInvoiceByNumber returns the user's invoice with exactly this number,
	// ignoring excludeID when it is not Nil. Returns nil, nil when there is none.
	FindInvoiceByNumber(ctx context.Context, userID, number string, excludeID id.ID) (*Record, error)
}

// Numbers extracts invoice numbers from records.
func Numbers(records []Record) []string {
	return lo.Map(records, func(r Record, _ int) string {
		return r.Number
	})
}
