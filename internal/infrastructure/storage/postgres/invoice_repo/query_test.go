package invoice_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturier/internal/core/id"
	"facturier/internal/core/numerator"
	"facturier/internal/domain/invoice"
)

const selectPrefix = "SELECT id, user_id, invoice_number, numbering_format, client_name, total_amount, issue_date, created_at, updated_at, version FROM invoices"

func TestSelectCols(t *testing.T) {
	assert.Equal(t, []string{
		"id", "user_id", "invoice_number", "numbering_format", "client_name",
		"total_amount", "issue_date", "created_at", "updated_at", "version",
	}, selectCols)
}

func TestListQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   invoice.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "no filter",
			filter:   invoice.ListFilter{},
			wantSQL:  selectPrefix + " WHERE user_id = $1 ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"u1"},
		},
		{
			name:     "prefix",
			filter:   invoice.ListFilter{Prefix: "FR-2024-"},
			wantSQL:  selectPrefix + " WHERE user_id = $1 AND invoice_number LIKE $2 ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"u1", "FR-2024-%"},
		},
		{
			name:     "prefix with wildcard characters",
			filter:   invoice.ListFilter{Prefix: "A_B%"},
			wantSQL:  selectPrefix + " WHERE user_id = $1 AND invoice_number LIKE $2 ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"u1", `A\_B\%%`},
		},
		{
			name:     "year and page",
			filter:   invoice.ListFilter{Year: 2024, Limit: 10, Offset: 20},
			wantSQL:  selectPrefix + " WHERE user_id = $1 AND EXTRACT(YEAR FROM COALESCE(created_at, issue_date) AT TIME ZONE 'UTC') = $2 ORDER BY created_at ASC, id ASC LIMIT 10 OFFSET 20",
			wantArgs: []any{"u1", 2024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := listQuery("u1", tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFindByNumberQuery(t *testing.T) {
	sql, args, err := findByNumberQuery("u1", "INV-202401-0001", id.Nil()).ToSql()
	require.NoError(t, err)
	assert.Equal(t, selectPrefix+" WHERE user_id = $1 AND invoice_number = $2 LIMIT 1", sql)
	assert.Equal(t, []any{"u1", "INV-202401-0001"}, args)

	exclude := id.New()
	sql, args, err = findByNumberQuery("u1", "INV-202401-0001", exclude).ToSql()
	require.NoError(t, err)
	assert.Equal(t, selectPrefix+" WHERE user_id = $1 AND invoice_number = $2 AND id <> $3 LIMIT 1", sql)
	assert.Equal(t, []any{"u1", "INV-202401-0001", exclude}, args)
}

func TestUpdateNumberQuery(t *testing.T) {
	inv := &invoice.Invoice{
		ID:              id.New(),
		UserID:          "u1",
		Number:          "FR-2024-000002",
		NumberingFormat: numerator.FormatFrench,
		UpdatedAt:       time.Now(),
		Version:         4,
	}

	sql, args, err := updateNumberQuery(inv).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "UPDATE invoices SET invoice_number = $1, numbering_format = $2, updated_at = $3, version = version + 1 WHERE "))
	assert.Contains(t, sql, "id = ")
	assert.Contains(t, sql, "user_id = ")
	assert.Contains(t, sql, "version = $")
	assert.Len(t, args, 6)
	assert.Contains(t, args, 4)
}

func TestInsertQuery(t *testing.T) {
	inv := &invoice.Invoice{
		ID:              id.New(),
		UserID:          "u1",
		Number:          "INV-202401-0001",
		NumberingFormat: numerator.FormatStandard,
		ClientName:      "ACME",
		TotalAmount:     decimal.NewFromInt(10),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
		Version:         1,
	}

	sql, args, err := insertQuery(inv).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "INSERT INTO invoices ("))
	for _, col := range selectCols {
		assert.Contains(t, sql, col)
	}
	assert.Len(t, args, len(selectCols))
}
