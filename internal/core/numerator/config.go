// Package numerator holds the invoice numbering rules: the two number grammars,
// next-number computation and the gapless check for the french series.
//
// Everything here is a pure function of its arguments. Callers pass a snapshot of
// the user's existing invoice numbers; nothing is cached between calls.
package numerator

import (
	"fmt"
	"regexp"
	"strings"
)

// Format identifies an invoice numbering scheme.
type Format string

const (
	// FormatStandard numbers invoices per calendar month: INV-YYYYMM-NNNN.
	FormatStandard Format = "standard"

	// FormatFrench numbers invoices per calendar year with a gapless sequence
	// as required by French invoicing law: FR-YYYY-NNNNNN.
	FormatFrench Format = "french"
)

// Reset periods of a numbering scope.
const (
	ResetMonth = "month"
	ResetYear  = "year"
)

// Config holds the numbering rules of one format.
type Config struct {
	// Prefix added to all numbers (e.g., "INV", "FR")
	Prefix string

	// PadWidth is the fixed width of the sequence part
	PadWidth int

	// ResetPeriod: "month" or "year"
	ResetPeriod string

	// Example is shown to users when a number is rejected
	Example string

	pattern *regexp.Regexp
}

var configs = map[Format]Config{
	FormatStandard: {
		Prefix:      "INV",
		PadWidth:    4,
		ResetPeriod: ResetMonth,
		Example:     "INV-202401-0001",
		pattern:     regexp.MustCompile(`^INV-(\d{6})-(\d{4})$`),
	},
	FormatFrench: {
		Prefix:      "FR",
		PadWidth:    6,
		ResetPeriod: ResetYear,
		Example:     "FR-2024-000001",
		pattern:     regexp.MustCompile(`^FR-(\d{4})-(\d{6})$`),
	},
}

// ConfigFor returns the numbering rules of f.
func ConfigFor(f Format) (Config, bool) {
	cfg, ok := configs[f]
	return cfg, ok
}

// ParseFormat converts user input ("standard", "french") to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown numbering format %q", s)
	}
	return f, nil
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := configs[f]
	return ok
}

// Example returns the user-facing sample number of f, or "" for unknown formats.
func (f Format) Example() string {
	return configs[f].Example
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}

// DetectFormat returns the format whose grammar number matches.
func DetectFormat(number string) (Format, bool) {
	for f, cfg := range configs {
		if cfg.pattern.MatchString(number) {
			return f, true
		}
	}
	return "", false
}
