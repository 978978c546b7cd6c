// Package invoice holds the invoice record and the create/renumber flows that
// assign invoice numbers through the numbering service.
package invoice

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"facturier/internal/core/apperror"
	"facturier/internal/core/id"
	"facturier/internal/core/numerator"
	"facturier/internal/domain/numbering"
)

// Invoice is the persisted invoice header.
type Invoice struct {
	ID     id.ID  `db:"id" json:"id"`
	UserID string `db:"user_id" json:"userId"`

	// Number is unique per user. Empty on create means "generate one".
	Number string `db:"invoice_number" json:"invoiceNumber"`

	// NumberingFormat is the scheme Number was issued under
	NumberingFormat numerator.Format `db:"numbering_format" json:"numberingFormat"`

	ClientName  string          `db:"client_name" json:"clientName"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`

	IssueDate *time.Time `db:"issue_date" json:"issueDate,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`

	// Version is used for optimistic locking
	Version int `db:"version" json:"version"`
}

// Validate checks the fields a caller must provide.
func (inv *Invoice) Validate(_ context.Context) error {
	if inv.UserID == "" {
		return apperror.NewValidation("user is required").WithDetail("field", "userId")
	}
	if strings.TrimSpace(inv.ClientName) == "" {
		return apperror.NewValidation("client name is required").WithDetail("field", "clientName")
	}
	if inv.TotalAmount.IsNegative() {
		return apperror.NewValidation("total amount must not be negative").
			WithDetail("field", "totalAmount").
			WithDetail("value", inv.TotalAmount.String())
	}
	if inv.NumberingFormat != "" && !inv.NumberingFormat.Valid() {
		return apperror.NewValidation("unknown numbering format").
			WithDetail("field", "numberingFormat").
			WithDetail("value", inv.NumberingFormat.String())
	}
	return nil
}

// Record projects the invoice onto the fields the numbering rules read.
func (inv *Invoice) Record() numbering.Record {
	rec := numbering.Record{
		ID:        inv.ID,
		Number:    inv.Number,
		IssueDate: inv.IssueDate,
	}
	if !inv.CreatedAt.IsZero() {
		createdAt := inv.CreatedAt
		rec.CreatedAt = &createdAt
	}
	return rec
}
