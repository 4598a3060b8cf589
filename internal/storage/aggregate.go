package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finans/internal/core"
)

// Aggregate reads. Amounts are summed in Go with exact decimals; SQL
// only filters and groups. Ranges are inclusive on both ends.

// SumAmount returns the exact sum of transaction amounts dated within
// [start, end].
func (s *SQLiteStore) SumAmount(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM transactions WHERE date >= ? AND date <= ?",
		toEpoch(start), toEpoch(end))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", raw, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// CategorySums returns exact per-category sums over [start, end],
// keyed by raw category label with "" for uncategorized rows. Labeling
// of the empty bucket is the aggregation layer's concern.
func (s *SQLiteStore) CategorySums(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT category, amount FROM transactions WHERE date >= ? AND date <= ?",
		toEpoch(start), toEpoch(end))
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			category sql.NullString
			raw      string
		)
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", raw, err)
		}
		sums[category.String] = sums[category.String].Add(d)
	}
	return sums, rows.Err()
}

// CountTransactions returns how many transactions fall within
// [start, end].
func (s *SQLiteStore) CountTransactions(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE date >= ? AND date <= ?",
		toEpoch(start), toEpoch(end)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// RecentTransactions returns the newest transactions within
// [start, end], capped at limit.
func (s *SQLiteStore) RecentTransactions(ctx context.Context, start, end time.Time, limit int) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE date >= ? AND date <= ? ORDER BY date DESC LIMIT ?",
		toEpoch(start), toEpoch(end), limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// DistinctMonths returns the first day of each calendar month having
// at least one transaction, most recent first. Callers synthesize a
// trailing-12-month fallback when the ledger is empty.
func (s *SQLiteStore) DistinctMonths(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT strftime('%Y-%m', date, 'unixepoch') AS month FROM transactions ORDER BY month DESC")
	if err != nil {
		return nil, fmt.Errorf("distinct months: %w", err)
	}
	defer rows.Close()

	var months []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		m, err := time.Parse("2006-01", raw)
		if err != nil {
			return nil, fmt.Errorf("parse month %q: %w", raw, err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}
