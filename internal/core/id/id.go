// Package id provides UUIDv7 identifiers for invoices.
// UUIDv7 is time-ordered, so invoice rows sort by insertion without a separate key.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

// New generates a new UUIDv7, falling back to V4 if the clock source fails.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// ParseOptional parses s, returning Nil for the empty string.
// Used for optional "exclude this invoice" parameters.
func ParseOptional(s string) (ID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}


// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
