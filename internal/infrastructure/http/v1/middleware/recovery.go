// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"facturier/internal/core/apperror"
	appctx "facturier/internal/core/context"
	"facturier/pkg/logger"
)

// Recovery turns a panic into a 500 rendered by ErrorHandler.
// The stack goes to the log, never to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"panic", rec,
				"route", c.FullPath(),
				"user_id", appctx.GetUserID(ctx),
				"stack", string(debug.Stack()),
			)

			_ = c.Error(
				apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
					WithDetail("request_id", appctx.GetRequestID(ctx)),
			)
			c.Abort()
		}()
		c.Next()
	}
}
