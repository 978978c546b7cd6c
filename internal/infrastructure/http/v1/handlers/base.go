package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facturier/internal/core/apperror"
	appctx "facturier/internal/core/context"
	"facturier/internal/core/id"
	"facturier/internal/core/numerator"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	defaultFormat numerator.Format
}

// NewBaseHandler creates a new base handler. defaultFormat is used when a
// request names no numbering format.
func NewBaseHandler(defaultFormat numerator.Format) *BaseHandler {
	if !defaultFormat.Valid() {
		defaultFormat = numerator.FormatStandard
	}
	return &BaseHandler{defaultFormat: defaultFormat}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the Gin context and aborts the request.
// The JSON body is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// UserID returns the authenticated user, or aborts with 401.
func (h *BaseHandler) UserID(c *gin.Context) (string, bool) {
	userID := appctx.GetUserID(c.Request.Context())
	if userID == "" {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return "", false
	}
	return userID, true
}

// PathID parses the :id path parameter.
func (h *BaseHandler) PathID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("id", c.Param("id")))
		return id.Nil(), false
	}
	return parsed, true
}

// Format resolves a format named by the client. Empty means the default format.
func (h *BaseHandler) Format(c *gin.Context, raw string) (numerator.Format, bool) {
	if raw == "" {
		return h.defaultFormat, true
	}
	f, err := numerator.ParseFormat(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("unknown numbering format").
			WithDetail("format", raw).
			WithDetail("allowed", []string{numerator.FormatStandard.String(), numerator.FormatFrench.String()}))
		return "", false
	}
	return f, true
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}
