package numbering

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"facturier/internal/core/id"
	"facturier/internal/core/numerator"
)

// ContinuityValidator enforces the gapless french series against stored invoices.
type ContinuityValidator struct {
	source Source
}

// NewContinuityValidator creates a ContinuityValidator over source.
func NewContinuityValidator(source Source) *ContinuityValidator {
	return &ContinuityValidator{source: source}
}

// Check loads the user's french numbers of year, drops excludeID, and checks
// that candidate continues them.
func (v *ContinuityValidator) Check(ctx context.Context, userID, candidate string, year int, excludeID id.ID) (numerator.Continuity, error) {
	records, err := v.source.ListInvoices(ctx, userID, Query{Prefix: numerator.YearPrefix(year)})
	if err != nil {
		return numerator.Continuity{}, fmt.Errorf("list invoices: %w", err)
	}

	if !id.IsNil(excludeID) {
		records = lo.Filter(records, func(r Record, _ int) bool {
			return r.ID != excludeID
		})
	}

	return numerator.CheckContinuity(candidate, Numbers(records), year), nil
}
