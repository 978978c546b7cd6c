package handlers

import (
	"github.com/gin-gonic/gin"

	"facturier/internal/core/apperror"
	"facturier/internal/core/id"
	"facturier/internal/domain/numbering"
	"facturier/internal/infrastructure/http/v1/dto"
)

// NumberingHandler exposes number preview, validation and statistics.
// None of its endpoints write.
type NumberingHandler struct {
	*BaseHandler
	service *numbering.Service
}

// NewNumberingHandler creates a numbering handler.
func NewNumberingHandler(base *BaseHandler, service *numbering.Service) *NumberingHandler {
	return &NumberingHandler{BaseHandler: base, service: service}
}

// Next previews the number the next invoice would get.
// GET /api/v1/invoices/numbering/next?format=french
func (h *NumberingHandler) Next(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req dto.NextNumberRequest
	if !h.BindQuery(c, &req) {
		return
	}
	format, ok := h.Format(c, req.Format)
	if !ok {
		return
	}

	number, err := h.service.GenerateNext(c.Request.Context(), userID, format)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NextNumberResponse{InvoiceNumber: number, Format: format.String()})
}

// Validate checks a candidate number. An empty number is valid, as it is on
// create where it asks for a generated one.
// POST /api/v1/invoices/numbering/validate
func (h *NumberingHandler) Validate(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req dto.ValidateNumberRequest
	if !h.BindJSON(c, &req) {
		return
	}
	format, ok := h.Format(c, req.Format)
	if !ok {
		return
	}
	invoiceID, err := id.ParseOptional(req.InvoiceID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id").WithDetail("invoiceId", req.InvoiceID))
		return
	}

	if err := h.service.ValidateExplicit(c.Request.Context(), userID, req.InvoiceNumber, format, invoiceID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ValidateNumberResponse{Valid: true})
}

// Stats returns the user's numbering statistics.
// GET /api/v1/invoices/numbering/stats
func (h *NumberingHandler) Stats(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stats)
}
