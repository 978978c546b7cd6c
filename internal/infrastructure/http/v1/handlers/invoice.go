package handlers

import (
	"github.com/gin-gonic/gin"

	"facturier/internal/core/numerator"
	"facturier/internal/domain/invoice"
	"facturier/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles HTTP requests for invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates an invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// Create stores an invoice, generating its number when none is given.
// POST /api/v1/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	// An empty format is resolved by the service, from the explicit number when
	// it matches one of the grammars.
	var format numerator.Format
	if req.NumberingFormat != "" {
		if format, ok = h.Format(c, req.NumberingFormat); !ok {
			return
		}
	}

	inv := req.ToEntity(userID)
	inv.NumberingFormat = format
	if err := h.service.Create(c.Request.Context(), inv); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromInvoice(inv))
}

// Get returns one invoice.
// GET /api/v1/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	invoiceID, ok := h.PathID(c)
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), userID, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoice(inv))
}

// List returns the user's invoices in creation order.
// GET /api/v1/invoices?prefix=FR-2024-&limit=50&offset=0
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req dto.ListInvoicesRequest
	if !h.BindQuery(c, &req) {
		return
	}

	items, err := h.service.List(c.Request.Context(), userID, req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromInvoices(items), req.Limit, req.Offset))
}

// UpdateNumber renumbers an invoice.
// PATCH /api/v1/invoices/:id/number
func (h *InvoiceHandler) UpdateNumber(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	invoiceID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateInvoiceNumberRequest
	if !h.BindJSON(c, &req) {
		return
	}

	// An empty format keeps the invoice's own, so the default is not applied here.
	var format numerator.Format
	if req.NumberingFormat != "" {
		if format, ok = h.Format(c, req.NumberingFormat); !ok {
			return
		}
	}

	inv, err := h.service.UpdateNumber(c.Request.Context(), userID, invoiceID, req.InvoiceNumber, format)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoice(inv))
}
