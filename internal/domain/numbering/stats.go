package numbering

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"

	"facturier/internal/core/apperror"
	"facturier/internal/core/numerator"
)

// Stats summarizes a user's invoice numbering.
type Stats struct {
	Total         int    `json:"total"`
	ThisYear      int    `json:"thisYear"`
	ThisMonth     int    `json:"thisMonth"`
	FrenchCount   int    `json:"frenchCount"`
	StandardCount int    `json:"standardCount"`
	LastNumber    string `json:"lastNumber"`
}

// Stats reads the user's invoices and aggregates them. It never writes.
// thisYear and thisMonth are evaluated against the scope date of each invoice.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	ctx, span := tracer.Start(ctx, "numbering.Stats")
	defer span.End()

	records, err := s.source.ListInvoices(ctx, userID, Query{})
	if err != nil {
		span.RecordError(err)
		return Stats{}, apperror.NewNumberingFailure(apperror.CodeSequenceValidation, err)
	}

	return summarize(records, s.now().UTC()), nil
}

func summarize(records []Record, now time.Time) Stats {
	frenchPrefix := prefixOf(numerator.FormatFrench)
	standardPrefix := prefixOf(numerator.FormatStandard)

	stats := Stats{
		Total: len(records),
		ThisYear: lo.CountBy(records, func(r Record) bool {
			d, ok := r.ScopeDate()
			return ok && d.Year() == now.Year()
		}),
		ThisMonth: lo.CountBy(records, func(r Record) bool {
			d, ok := r.ScopeDate()
			return ok && d.Year() == now.Year() && d.Month() == now.Month()
		}),
		FrenchCount: lo.CountBy(records, func(r Record) bool {
			return strings.HasPrefix(r.Number, frenchPrefix)
		}),
		StandardCount: lo.CountBy(records, func(r Record) bool {
			return strings.HasPrefix(r.Number, standardPrefix)
		}),
	}

	if len(records) > 0 {
		latest := lo.MaxBy(records, func(a, b Record) bool {
			da, _ := a.ScopeDate()
			db, _ := b.ScopeDate()
			return da.After(db)
		})
		stats.LastNumber = latest.Number
	}

	return stats
}

func prefixOf(f numerator.Format) string {
	cfg, _ := numerator.ConfigFor(f)
	return cfg.Prefix + "-"
}
