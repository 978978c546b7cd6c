package dto

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"facturier/internal/core/numerator"
	"facturier/internal/domain/invoice"
)

// --- Request DTOs ---

// CreateInvoiceRequest is the request body for creating an invoice.
// An empty invoiceNumber asks the server to generate one.
type CreateInvoiceRequest struct {
	InvoiceNumber   string          `json:"invoiceNumber"`
	NumberingFormat string          `json:"numberingFormat"`
	ClientName      string          `json:"clientName" binding:"required"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	IssueDate       *time.Time      `json:"issueDate"`
}

// ToEntity converts DTO to domain entity for userID.
func (r *CreateInvoiceRequest) ToEntity(userID string) *invoice.Invoice {
	return &invoice.Invoice{
		UserID:          userID,
		Number:          r.InvoiceNumber,
		NumberingFormat: numerator.Format(r.NumberingFormat),
		ClientName:      r.ClientName,
		TotalAmount:     r.TotalAmount,
		IssueDate:       r.IssueDate,
	}
}

// UpdateInvoiceNumberRequest renumbers an invoice.
type UpdateInvoiceNumberRequest struct {
	InvoiceNumber   string `json:"invoiceNumber" binding:"required"`
	NumberingFormat string `json:"numberingFormat"`
}

// ListInvoicesRequest holds the invoice list query.
type ListInvoicesRequest struct {
	PaginationRequest
	Prefix string `form:"prefix"`
	Year   int    `form:"year" binding:"omitempty,min=1900,max=9999"`
}

// ToFilter converts the query to a repository filter.
func (r *ListInvoicesRequest) ToFilter() invoice.ListFilter {
	return invoice.ListFilter{
		Prefix: r.Prefix,
		Year:   r.Year,
		Limit:  r.Limit,
		Offset: r.Offset,
	}
}

// --- Response DTOs ---

// InvoiceResponse is the response for invoice endpoints.
type InvoiceResponse struct {
	ID              string          `json:"id"`
	InvoiceNumber   string          `json:"invoiceNumber"`
	NumberingFormat string          `json:"numberingFormat"`
	ClientName      string          `json:"clientName"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	IssueDate       *time.Time      `json:"issueDate,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// FromInvoice converts domain entity to response DTO.
func FromInvoice(inv *invoice.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:              inv.ID.String(),
		InvoiceNumber:   inv.Number,
		NumberingFormat: inv.NumberingFormat.String(),
		ClientName:      inv.ClientName,
		TotalAmount:     inv.TotalAmount,
		IssueDate:       inv.IssueDate,
		Version:         inv.Version,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

// FromInvoices converts a page of invoices.
func FromInvoices(items []*invoice.Invoice) []InvoiceResponse {
	return lo.Map(items, func(inv *invoice.Invoice, _ int) InvoiceResponse {
		return FromInvoice(inv)
	})
}
