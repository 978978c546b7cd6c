package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextNumber computes the next number of format f for the scope containing now.
//
// existing is the user's complete set of invoice numbers. Entries outside the
// current scope or not matching the grammar are skipped, so malformed legacy data
// never blocks generation. An empty snapshot yields sequence 1.
//
// There is no persisted counter: two callers holding the same snapshot get the
// same answer. Callers must serialize per user or rely on a unique index and retry.
func NextNumber(existing []string, f Format, now time.Time) string {
	cfg, ok := configs[f]
	if !ok {
		return ""
	}

	prefix := ScopePrefix(f, now)
	return prefix + padSequence(cfg, MaxSequence(existing, prefix, f)+1)
}

// ScopePrefix returns the prefix every number of f issued in the scope of period
// starts with, e.g. "INV-202401-" or "FR-2024-".
func ScopePrefix(f Format, period time.Time) string {
	cfg, ok := configs[f]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s-%s-", cfg.Prefix, scopeKey(cfg, period))
}

// YearPrefix returns the prefix of french numbers of the given year.
func YearPrefix(year int) string {
	return fmt.Sprintf("%s-%04d-", configs[FormatFrench].Prefix, year)
}

// FormatNumber builds the number of f with sequence seq in the scope of period.
func FormatNumber(f Format, period time.Time, seq int64) string {
	cfg, ok := configs[f]
	if !ok {
		return ""
	}
	return ScopePrefix(f, period) + padSequence(cfg, seq)
}

// ParseSequence extracts the trailing sequence of a well-formed number of f.
func ParseSequence(number string, f Format) (int64, bool) {
	cfg, ok := configs[f]
	if !ok {
		return 0, false
	}
	m := cfg.pattern.FindStringSubmatch(number)
	if m == nil {
		return 0, false
	}
	seq, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// Sequences returns the parsed sequences of all numbers of f starting with prefix.
func Sequences(existing []string, prefix string, f Format) []int64 {
	seqs := make([]int64, 0, len(existing))
	for _, number := range existing {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		if seq, ok := ParseSequence(number, f); ok {
			seqs = append(seqs, seq)
		}
	}
	return seqs
}

// MaxSequence returns the highest sequence under prefix, 0 if there is none.
func MaxSequence(existing []string, prefix string, f Format) int64 {
	var max int64
	for _, seq := range Sequences(existing, prefix, f) {
		if seq > max {
			max = seq
		}
	}
	return max
}

// scopeKey creates the scope part of a number based on the reset period.
func scopeKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case ResetMonth:
		return period.Format("200601")
	default:
		return period.Format("2006")
	}
}

func padSequence(cfg Config, seq int64) string {
	return fmt.Sprintf("%0*d", cfg.PadWidth, seq)
}
