package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"finans/internal/core"
)

const statementColumns = "id, card_id, period_start, period_end, total_amount, min_payment, due_date, pdf_path, raw_json, created_at"

// CreateStatement persists a statement header. Fails with a
// ConstraintError when the owning card does not exist.
func (s *SQLiteStore) CreateStatement(ctx context.Context, st core.Statement) error {
	ok, err := s.cardExists(ctx, s.db, st.CardID)
	if err != nil {
		return err
	}
	if !ok {
		return &ConstraintError{Entity: "statement", Parent: "card", ParentID: st.CardID}
	}
	if err := insertStatement(ctx, s.db, st); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Statement created", "id", st.ID, "card_id", st.CardID)
	return nil
}

// CreateStatementWithTransactions persists a statement and its
// transactions in one transaction. Readers never observe the statement
// without its line items; a failure leaves the ledger unchanged.
func (s *SQLiteStore) CreateStatementWithTransactions(ctx context.Context, st core.Statement, txns []core.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin statement insert: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.cardExists(ctx, tx, st.CardID)
	if err != nil {
		return err
	}
	if !ok {
		return &ConstraintError{Entity: "statement", Parent: "card", ParentID: st.CardID}
	}

	if err := insertStatement(ctx, tx, st); err != nil {
		return err
	}
	for _, t := range txns {
		if t.StatementID != st.ID {
			return &ConstraintError{Entity: "transaction", Parent: "statement", ParentID: t.StatementID}
		}
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit statement insert: %w", err)
	}

	slog.InfoContext(ctx, "Statement persisted with transactions",
		"id", st.ID,
		"card_id", st.CardID,
		"transactions", len(txns))
	return nil
}

// GetStatement returns the statement with the given id, or ErrNotFound.
func (s *SQLiteStore) GetStatement(ctx context.Context, id string) (core.Statement, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+statementColumns+" FROM statements WHERE id = ?", id)

	st, err := scanStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Statement{}, fmt.Errorf("statement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Statement{}, fmt.Errorf("get statement: %w", err)
	}
	return st, nil
}

// ListStatements returns statements, optionally restricted to one
// card, most recently created first.
func (s *SQLiteStore) ListStatements(ctx context.Context, cardID string) ([]core.Statement, error) {
	query := "SELECT " + statementColumns + " FROM statements"
	var args []any
	if cardID != "" {
		query += " WHERE card_id = ?"
		args = append(args, cardID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()

	var statements []core.Statement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		statements = append(statements, st)
	}
	return statements, rows.Err()
}

// DeleteStatement removes the statement and its transactions
// atomically.
func (s *SQLiteStore) DeleteStatement(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete statement: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM transactions WHERE statement_id = ?", id); err != nil {
		return fmt.Errorf("delete statement transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM statements WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete statement: %w", err)
	}

	slog.InfoContext(ctx, "Statement deleted with cascade", "id", id)
	return nil
}

// TransactionCount returns how many transactions a statement owns.
func (s *SQLiteStore) TransactionCount(ctx context.Context, statementID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE statement_id = ?", statementID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count statement transactions: %w", err)
	}
	return count, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertStatement(ctx context.Context, e execer, st core.Statement) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO statements (id, card_id, period_start, period_end, total_amount, min_payment, due_date, pdf_path, raw_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.CardID,
		nullEpoch(st.PeriodStart), nullEpoch(st.PeriodEnd),
		nullDecimal(st.TotalAmount), nullDecimal(st.MinPayment),
		nullEpoch(st.DueDate),
		nullString(st.PDFPath), nullString(st.RawJSON),
		toEpoch(st.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert statement: %w", err)
	}
	return nil
}

func (s *SQLiteStore) statementExists(ctx context.Context, q queryer, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM statements WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check statement exists: %w", err)
	}
	return true, nil
}

func scanStatement(row rowScanner) (core.Statement, error) {
	var (
		st          core.Statement
		periodStart sql.NullInt64
		periodEnd   sql.NullInt64
		totalAmount sql.NullString
		minPayment  sql.NullString
		dueDate     sql.NullInt64
		pdfPath     sql.NullString
		rawJSON     sql.NullString
		createdAt   int64
	)
	if err := row.Scan(&st.ID, &st.CardID, &periodStart, &periodEnd,
		&totalAmount, &minPayment, &dueDate, &pdfPath, &rawJSON, &createdAt); err != nil {
		return core.Statement{}, err
	}

	st.PeriodStart = epochPtr(periodStart)
	st.PeriodEnd = epochPtr(periodEnd)
	st.DueDate = epochPtr(dueDate)
	st.PDFPath = pdfPath.String
	st.RawJSON = rawJSON.String
	st.CreatedAt = fromEpoch(createdAt)

	var err error
	if st.TotalAmount, err = decimalPtr(totalAmount); err != nil {
		return core.Statement{}, err
	}
	if st.MinPayment, err = decimalPtr(minPayment); err != nil {
		return core.Statement{}, err
	}
	return st, nil
}
