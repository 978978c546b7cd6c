package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturier/internal/core/apperror"
	appctx "facturier/internal/core/context"
	"facturier/internal/infrastructure/http/v1/middleware"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Trace(), middleware.ErrorHandler())
	return r
}

func serve(t *testing.T, r *gin.Engine, req *http.Request) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func TestRecovery(t *testing.T) {
	r := newEngine()
	r.GET("/boom", func(*gin.Context) { panic("nil map") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-1")
	code, body := serve(t, r, req)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, apperror.CodeInternal, body["code"])
	assert.NotContains(t, body["message"], "nil map")
	assert.Equal(t, "req-1", body["details"].(map[string]any)["request_id"])
}

func TestErrorHandler(t *testing.T) {
	r := newEngine()
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperror.NewDuplicateInvoiceNumber("FR-2024-000001"))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("db password in here"))
	})

	code, body := serve(t, r, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, apperror.CodeDuplicateInvoiceNumber, body["code"])
	assert.Equal(t, "FR-2024-000001", body["details"].(map[string]any)["invoiceNumber"])

	code, body = serve(t, r, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body["message"])
}

type staticValidator struct {
	user *appctx.UserContext
	err  error
}

func (v staticValidator) ValidateToken(string) (*appctx.UserContext, error) { return v.user, v.err }

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newRouter := func(v middleware.JWTValidator) *gin.Engine {
		r := gin.New()
		r.Use(middleware.ErrorHandler(), middleware.Auth(v))
		r.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"userId": appctx.GetUserID(c.Request.Context())})
		})
		return r
	}

	ok := newRouter(staticValidator{user: &appctx.UserContext{UserID: "user-7"}})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer abc")
	code, body := serve(t, ok, req)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user-7", body["userId"])

	for _, header := range []string{"", "abc", "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		code, body := serve(t, ok, req)
		assert.Equal(t, http.StatusUnauthorized, code, header)
		assert.Equal(t, apperror.CodeUnauthorized, body["code"])
	}

	rejected := newRouter(staticValidator{err: errors.New("expired")})
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	code, _ = serve(t, rejected, req)
	assert.Equal(t, http.StatusUnauthorized, code)
}
