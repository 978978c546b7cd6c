package numbering

import (
	"context"
	"fmt"

	"facturier/internal/core/id"
)

// DuplicateChecker answers whether a user already owns an invoice number.
type DuplicateChecker struct {
	source Source
}

// NewDuplicateChecker creates a DuplicateChecker over source.
func NewDuplicateChecker(source Source) *DuplicateChecker {
	return &DuplicateChecker{source: source}
}

// Exists reports whether userID owns an invoice numbered exactly number,
// other than excludeID. Comparison is case-sensitive.
func (d *DuplicateChecker) Exists(ctx context.Context, number, userID string, excludeID id.ID) (bool, error) {
	rec, err := d.source.FindInvoiceByNumber(ctx, userID, number, excludeID)
	if err != nil {
		return false, fmt.Errorf("find invoice by number: %w", err)
	}
	return rec != nil, nil
}
