// Package invoice_repo provides the PostgreSQL implementation of invoice.Repository.
package invoice_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturier/internal/core/apperror"
	"facturier/internal/core/id"
	"facturier/internal/domain/invoice"
	"facturier/internal/infrastructure/storage/postgres"
)

const (
	tableName = "invoices"

	// numberConstraint is the unique index on (user_id, invoice_number).
	numberConstraint = "invoices_user_number_key"

	// scopeDateExpr is the date deciding the numbering year of an invoice.
	scopeDateExpr = "COALESCE(created_at, issue_date) AT TIME ZONE 'UTC'"
)

var selectCols = postgres.ExtractDBColumns[invoice.Invoice]()

// InvoiceRepo stores invoices in the invoices table.
type InvoiceRepo struct {
	txm *postgres.TxManager
}

// NewInvoiceRepo creates the repository. Queries join the transaction carried
// by the context when there is one.
func NewInvoiceRepo(txm *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{txm: txm}
}

var _ invoice.Repository = (*InvoiceRepo)(nil)

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create implements invoice.Repository.
func (r *InvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	sql, args, err := insertQuery(inv).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, numberConstraint) {
			return invoice.ErrNumberTaken
		}
		return fmt.Errorf("insert %s: %w", tableName, err)
	}
	return nil
}

// GetByID implements invoice.Repository.
func (r *InvoiceRepo) GetByID(ctx context.Context, userID string, invoiceID id.ID) (*invoice.Invoice, error) {
	sql, args, err := selectQuery(userID).
		Where(squirrel.Eq{"id": invoiceID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var inv invoice.Invoice
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", invoiceID.String())
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// UpdateNumber implements invoice.Repository.
func (r *InvoiceRepo) UpdateNumber(ctx context.Context, inv *invoice.Invoice) error {
	sql, args, err := updateNumberQuery(inv).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	switch {
	case postgres.IsUniqueViolation(err, numberConstraint):
		return invoice.ErrNumberTaken
	case postgres.IsSerializationFailure(err):
		return apperror.NewConcurrentModification("invoice", inv.ID.String()).WithCause(err)
	case err != nil:
		return fmt.Errorf("update %s: %w", tableName, err)
	}

	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("invoice", inv.ID.String())
	}
	inv.Version++
	return nil
}

// List implements invoice.Repository.
func (r *InvoiceRepo) List(ctx context.Context, userID string, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	sql, args, err := listQuery(userID, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*invoice.Invoice
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

// FindByNumber implements invoice.Repository.
func (r *InvoiceRepo) FindByNumber(ctx context.Context, userID, number string, excludeID id.ID) (*invoice.Invoice, error) {
	sql, args, err := findByNumberQuery(userID, number, excludeID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var inv invoice.Invoice
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find invoice by number: %w", err)
	}
	return &inv, nil
}

// --- query builders ---

func insertQuery(inv *invoice.Invoice) squirrel.InsertBuilder {
	return builder().
		Insert(tableName).
		SetMap(postgres.StructToMap(inv))
}

func selectQuery(userID string) squirrel.SelectBuilder {
	return builder().
		Select(selectCols...).
		From(tableName).
		Where(squirrel.Eq{"user_id": userID})
}

func updateNumberQuery(inv *invoice.Invoice) squirrel.UpdateBuilder {
	return builder().
		Update(tableName).
		Set("invoice_number", inv.Number).
		Set("numbering_format", inv.NumberingFormat).
		Set("updated_at", inv.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": inv.ID, "user_id": inv.UserID, "version": inv.Version})
}

func listQuery(userID string, filter invoice.ListFilter) squirrel.SelectBuilder {
	q := selectQuery(userID)

	if filter.Prefix != "" {
		q = q.Where(squirrel.Like{"invoice_number": escapeLike(filter.Prefix) + "%"})
	}
	if filter.Year != 0 {
		q = q.Where(squirrel.Expr("EXTRACT(YEAR FROM "+scopeDateExpr+") = ?", filter.Year))
	}

	q = q.OrderBy("created_at ASC", "id ASC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func findByNumberQuery(userID, number string, excludeID id.ID) squirrel.SelectBuilder {
	q := selectQuery(userID).Where(squirrel.Eq{"invoice_number": number})
	if !id.IsNil(excludeID) {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}
	return q.Limit(1)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
