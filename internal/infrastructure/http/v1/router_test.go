package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturier/internal/core/apperror"
	"facturier/internal/core/numerator"
	"facturier/internal/domain/auth"
	"facturier/internal/domain/invoice"
	"facturier/internal/domain/numbering"
	v1 "facturier/internal/infrastructure/http/v1"
	"facturier/internal/infrastructure/http/v1/handlers"
	"facturier/internal/infrastructure/storage/memory"
	"facturier/pkg/logger"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

var june2024 = time.Date(2024, time.June, 14, 10, 0, 0, 0, time.UTC)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testAPI struct {
	t      *testing.T
	router http.Handler
	jwt    *auth.JWTService
}

func newTestAPI(t *testing.T, checks map[string]handlers.Pinger) *testAPI {
	t.Helper()
	clock := func() time.Time { return june2024 }

	store := memory.NewInvoiceStore()
	numberingSvc := numbering.NewService(invoice.NewNumberingSource(store), numbering.WithClock(clock))
	invoiceSvc := invoice.NewService(invoice.ServiceConfig{
		Repo:          store,
		Numbering:     numberingSvc,
		DefaultFormat: numerator.FormatFrench,
		Now:           clock,
	})
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig(testSecret))

	router := v1.NewRouter(v1.RouterConfig{
		Logger:        logger.NewNop(),
		JWTValidator:  jwtSvc,
		Numbering:     numberingSvc,
		Invoices:      invoiceSvc,
		DefaultFormat: numerator.FormatFrench,
		HealthChecks:  checks,
	})
	return &testAPI{t: t, router: router, jwt: jwtSvc}
}

func (a *testAPI) token(userID string) string {
	a.t.Helper()
	token, _, err := a.jwt.GenerateAccessToken(userID, userID+"@example.fr", nil)
	require.NoError(a.t, err)
	return token
}

func (a *testAPI) do(method, path, userID string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(userID))
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("live needs no dependency", func(t *testing.T) {
		api := newTestAPI(t, map[string]handlers.Pinger{"database": down})
		rec, body := api.do(http.MethodGet, "/health/live", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("ready", func(t *testing.T) {
		api := newTestAPI(t, map[string]handlers.Pinger{"database": healthy, "redis": healthy})
		rec, body := api.do(http.MethodGet, "/health/ready", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"database": "healthy", "redis": "healthy"}, body["checks"])
	})

	t.Run("not ready", func(t *testing.T) {
		api := newTestAPI(t, map[string]handlers.Pinger{"database": healthy, "redis": down})
		rec, body := api.do(http.MethodGet, "/health/ready", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "error", body["status"])
		checks := body["checks"].(map[string]any)
		assert.Contains(t, checks["redis"], "connection refused")
	})
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(http.MethodGet, "/api/v1/invoices/numbering/next", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperror.CodeUnauthorized, body["code"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	raw := httptest.NewRecorder()
	api.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusUnauthorized, raw.Code)

	other := auth.NewJWTService(auth.DefaultJWTConfig("another-secret-another-secret-1234"))
	forged, _, err := other.GenerateAccessToken("user-1", "", nil)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	raw = httptest.NewRecorder()
	api.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusUnauthorized, raw.Code)
}

func TestTraceHeaders(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

func TestNumberingEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(http.MethodGet, "/api/v1/invoices/numbering/next", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FR-2024-000001", body["invoiceNumber"], "default format")
	assert.Equal(t, "french", body["format"])

	rec, body = api.do(http.MethodGet, "/api/v1/invoices/numbering/next?format=standard", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "INV-202406-0001", body["invoiceNumber"])

	rec, body = api.do(http.MethodGet, "/api/v1/invoices/numbering/next?format=roman", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeValidation, body["code"])

	// previewing does not reserve a number
	rec, body = api.do(http.MethodPost, "/api/v1/invoices", "user-1", map[string]any{
		"clientName":  "Atelier Durand",
		"totalAmount": "99.90",
	})
	require.Equal(t, http.StatusCreated, rec.Code, body)
	assert.Equal(t, "FR-2024-000001", body["invoiceNumber"])
	firstID := body["id"].(string)

	t.Run("validate", func(t *testing.T) {
		cases := []struct {
			name   string
			req    map[string]any
			status int
			code   string
		}{
			{"next in series", map[string]any{"invoiceNumber": "FR-2024-000002", "format": "french"}, http.StatusOK, ""},
			{"gap", map[string]any{"invoiceNumber": "FR-2024-000003", "format": "french"}, http.StatusUnprocessableEntity, apperror.CodeNonSequentialInvoiceNumber},
			{"duplicate", map[string]any{"invoiceNumber": "FR-2024-000001", "format": "french"}, http.StatusConflict, apperror.CodeDuplicateInvoiceNumber},
			{"own number", map[string]any{"invoiceNumber": "FR-2024-000001", "format": "french", "invoiceId": firstID}, http.StatusOK, ""},
			{"bad grammar", map[string]any{"invoiceNumber": "FR-24-1", "format": "french"}, http.StatusBadRequest, apperror.CodeInvalidInvoiceNumberFormat},
			{"empty number", map[string]any{"format": "french"}, http.StatusOK, ""},
			{"bad invoice id", map[string]any{"invoiceNumber": "FR-2024-000002", "invoiceId": "nope"}, http.StatusBadRequest, apperror.CodeValidation},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				rec, body := api.do(http.MethodPost, "/api/v1/invoices/numbering/validate", "user-1", tc.req)
				assert.Equal(t, tc.status, rec.Code, body)
				if tc.code == "" {
					assert.Equal(t, true, body["valid"])
					return
				}
				assert.Equal(t, tc.code, body["code"])
				assert.NotNil(t, body["details"])
			})
		}
	})

	t.Run("gap details suggest the next number", func(t *testing.T) {
		_, body := api.do(http.MethodPost, "/api/v1/invoices/numbering/validate", "user-1",
			map[string]any{"invoiceNumber": "FR-2024-000007", "format": "french"})
		details := body["details"].(map[string]any)
		assert.EqualValues(t, 2, details["expectedSequence"])
		assert.EqualValues(t, 7, details["currentSequence"])
	})

	t.Run("other users are isolated", func(t *testing.T) {
		rec, body := api.do(http.MethodPost, "/api/v1/invoices/numbering/validate", "user-2",
			map[string]any{"invoiceNumber": "FR-2024-000001", "format": "french"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["valid"])
	})

	t.Run("stats", func(t *testing.T) {
		rec, body := api.do(http.MethodGet, "/api/v1/invoices/numbering/stats", "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, body["total"])
		assert.EqualValues(t, 1, body["thisYear"])
		assert.EqualValues(t, 1, body["thisMonth"])
		assert.EqualValues(t, 1, body["frenchCount"])
		assert.EqualValues(t, 0, body["standardCount"])
		assert.Equal(t, "FR-2024-000001", body["lastNumber"])
	})
}

func TestInvoiceEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(http.MethodPost, "/api/v1/invoices", "user-1", map[string]any{
		"clientName":      "Librairie Moreau",
		"totalAmount":     1250.5,
		"numberingFormat": "standard",
	})
	require.Equal(t, http.StatusCreated, rec.Code, body)
	assert.Equal(t, "INV-202406-0001", body["invoiceNumber"])
	assert.Equal(t, "standard", body["numberingFormat"])
	assert.EqualValues(t, 1, body["version"])
	invoiceID := body["id"].(string)

	rec, body = api.do(http.MethodPost, "/api/v1/invoices", "user-1", map[string]any{
		"clientName":    "Librairie Moreau",
		"invoiceNumber": "FR-2024-000010",
	})
	require.Equal(t, http.StatusCreated, rec.Code, body)
	assert.Equal(t, "FR-2024-000010", body["invoiceNumber"], "first french number of the year")

	rec, body = api.do(http.MethodPost, "/api/v1/invoices", "user-1", map[string]any{
		"clientName":    "Librairie Moreau",
		"invoiceNumber": "FR-2024-000012",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperror.CodeNonSequentialInvoiceNumber, body["code"])

	rec, body = api.do(http.MethodPost, "/api/v1/invoices", "user-1", map[string]any{"totalAmount": "10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeValidation, body["code"])

	t.Run("get", func(t *testing.T) {
		rec, body := api.do(http.MethodGet, "/api/v1/invoices/"+invoiceID, "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "INV-202406-0001", body["invoiceNumber"])
		assert.Equal(t, "1250.5", body["totalAmount"])

		rec, body = api.do(http.MethodGet, "/api/v1/invoices/"+invoiceID, "user-2", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apperror.CodeNotFound, body["code"])

		rec, _ = api.do(http.MethodGet, "/api/v1/invoices/not-a-uuid", "user-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec, body := api.do(http.MethodGet, "/api/v1/invoices", "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 2, body["count"])

		rec, body = api.do(http.MethodGet, "/api/v1/invoices?prefix=FR-", "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		items := body["items"].([]any)
		require.Len(t, items, 1)
		assert.Equal(t, "FR-2024-000010", items[0].(map[string]any)["invoiceNumber"])

		rec, body = api.do(http.MethodGet, "/api/v1/invoices", "user-2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, body["items"])

		rec, _ = api.do(http.MethodGet, "/api/v1/invoices?limit=0", "user-1", nil)
		assert.Equal(t, http.StatusOK, rec.Code, "zero limit means default")

		rec, _ = api.do(http.MethodGet, "/api/v1/invoices?limit=1000", "user-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update number", func(t *testing.T) {
		rec, body := api.do(http.MethodPatch, "/api/v1/invoices/"+invoiceID+"/number", "user-1",
			map[string]any{"invoiceNumber": "INV-202406-0100"})
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, "INV-202406-0100", body["invoiceNumber"])
		assert.Equal(t, "standard", body["numberingFormat"], "format kept")
		assert.EqualValues(t, 2, body["version"])

		rec, body = api.do(http.MethodPatch, "/api/v1/invoices/"+invoiceID+"/number", "user-1",
			map[string]any{"invoiceNumber": "FR-2024-000010", "numberingFormat": "french"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, apperror.CodeDuplicateInvoiceNumber, body["code"])

		rec, body = api.do(http.MethodPatch, "/api/v1/invoices/"+invoiceID+"/number", "user-1",
			map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperror.CodeValidation, body["code"])
	})
}

func TestCreateInvoice_FormatFromNumber(t *testing.T) {
	api := newTestAPI(t, nil)

	// the default format is french, the number says standard
	rec, body := api.do(http.MethodPost, "/api/v1/invoices", "user-1", map[string]any{
		"clientName":    "Atelier Durand",
		"invoiceNumber": "INV-202406-0005",
	})
	require.Equal(t, http.StatusCreated, rec.Code, body)
	assert.Equal(t, "standard", body["numberingFormat"])

	rec, body = api.do(http.MethodPost, "/api/v1/invoices", "user-1", map[string]any{
		"clientName":      "Atelier Durand",
		"invoiceNumber":   "INV-202406-0006",
		"numberingFormat": "french",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeInvalidInvoiceNumberFormat, body["code"], "an explicit format wins")
}
