package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"finans/internal/core"
)

const transactionColumns = "id, statement_id, date, description, merchant, amount, currency, category, created_at"

// TransactionFilter narrows ListTransactions. Zero-value fields are
// ignored. Search is a case-insensitive substring match over
// description and merchant.
type TransactionFilter struct {
	StatementID string
	CardID      string
	Category    string
	Search      string
}

// CreateTransactions bulk-inserts line items in the given order. Each
// row must reference an existing statement; the batch is not
// all-or-nothing, so a failed row leaves earlier rows persisted.
func (s *SQLiteStore) CreateTransactions(ctx context.Context, txns []core.Transaction) error {
	for i, t := range txns {
		ok, err := s.statementExists(ctx, s.db, t.StatementID)
		if err != nil {
			return err
		}
		if !ok {
			return &ConstraintError{Entity: "transaction", Parent: "statement", ParentID: t.StatementID}
		}
		if err := insertTransaction(ctx, s.db, t); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	slog.InfoContext(ctx, "Transactions created", "count", len(txns))
	return nil
}

// ListTransactions returns line items matching the filter, newest
// first by date.
func (s *SQLiteStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT t.id, t.statement_id, t.date, t.description, t.merchant, t.amount, t.currency, t.category, t.created_at FROM transactions t")
	if f.CardID != "" {
		sb.WriteString(" INNER JOIN statements s ON t.statement_id = s.id")
	}
	sb.WriteString(" WHERE 1=1")

	if f.StatementID != "" {
		sb.WriteString(" AND t.statement_id = ?")
		args = append(args, f.StatementID)
	}
	if f.CardID != "" {
		sb.WriteString(" AND s.card_id = ?")
		args = append(args, f.CardID)
	}
	if f.Category != "" {
		sb.WriteString(" AND t.category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		sb.WriteString(" AND (t.description LIKE '%' || ? || '%' OR t.merchant LIKE '%' || ? || '%')")
		args = append(args, f.Search, f.Search)
	}
	sb.WriteString(" ORDER BY t.date DESC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// UpdateTransactionCategory relabels one transaction. An empty
// category clears the label. Missing ids are a silent no-op.
func (s *SQLiteStore) UpdateTransactionCategory(ctx context.Context, id, category string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET category = ? WHERE id = ?",
		nullString(category), id)
	if err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	return nil
}

// UpdateTransactionsCategory relabels a set of transactions in one
// statement.
func (s *SQLiteStore) UpdateTransactionsCategory(ctx context.Context, ids []string, category string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, nullString(category))
	for _, id := range ids {
		args = append(args, id)
	}

	query := "UPDATE transactions SET category = ? WHERE id IN (" + placeholders(len(ids)) + ")"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk update transaction category: %w", err)
	}

	slog.InfoContext(ctx, "Transactions recategorized", "count", len(ids), "category", category)
	return nil
}

// DeleteTransaction removes one line item.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// DeleteTransactions removes a set of line items in one statement.
func (s *SQLiteStore) DeleteTransactions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := "DELETE FROM transactions WHERE id IN (" + placeholders(len(ids)) + ")"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk delete transactions: %w", err)
	}
	return nil
}

// ClearAll wipes the whole ledger in one transaction.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear all: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "statements", "cards", "categories"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear all: %w", err)
	}

	slog.WarnContext(ctx, "All ledger data cleared")
	return nil
}

func insertTransaction(ctx context.Context, e execer, t core.Transaction) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO transactions (id, statement_id, date, description, merchant, amount, currency, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StatementID, toEpoch(t.Date), t.Description,
		nullString(t.Merchant), t.Amount.String(), t.Currency,
		nullString(t.Category), toEpoch(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		date      int64
		merchant  sql.NullString
		amount    string
		category  sql.NullString
		createdAt int64
	)
	if err := row.Scan(&t.ID, &t.StatementID, &date, &t.Description,
		&merchant, &amount, &t.Currency, &category, &createdAt); err != nil {
		return core.Transaction{}, err
	}

	t.Date = fromEpoch(date)
	t.Merchant = merchant.String
	t.Category = category.String
	t.CreatedAt = fromEpoch(createdAt)

	d, err := decimalPtr(sql.NullString{String: amount, Valid: true})
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = *d
	return t, nil
}
