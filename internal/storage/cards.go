package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"finans/internal/core"
)

const cardColumns = "id, name, bank, last_four, created_at"

// CreateCard persists a card. The id must be pre-generated by the
// caller; the store assigns nothing.
func (s *SQLiteStore) CreateCard(ctx context.Context, c core.Card) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cards (id, name, bank, last_four, created_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Name, nullString(c.Bank), nullString(c.LastFour), toEpoch(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}

	slog.InfoContext(ctx, "Card created", "id", c.ID, "name", c.Name, "last_four", c.LastFour)
	return nil
}

// GetCard returns the card with the given id, or ErrNotFound.
func (s *SQLiteStore) GetCard(ctx context.Context, id string) (core.Card, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE id = ?", id)

	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// ListCards returns all cards, most recently created first.
func (s *SQLiteStore) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+cardColumns+" FROM cards ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []core.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpdateCard rewrites the card's mutable fields. A missing id is a
// no-op, not an error: the card is treated as already gone.
func (s *SQLiteStore) UpdateCard(ctx context.Context, c core.Card) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cards SET name = ?, bank = ?, last_four = ? WHERE id = ?",
		c.Name, nullString(c.Bank), nullString(c.LastFour), c.ID)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

// DeleteCard removes the card, its statements and their transactions
// as one atomic operation: a crash mid-cascade leaves no orphans.
func (s *SQLiteStore) DeleteCard(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete card: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM transactions WHERE statement_id IN (SELECT id FROM statements WHERE card_id = ?)", id); err != nil {
		return fmt.Errorf("delete card transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM statements WHERE card_id = ?", id); err != nil {
		return fmt.Errorf("delete card statements: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cards WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete card: %w", err)
	}

	slog.InfoContext(ctx, "Card deleted with cascade", "id", id)
	return nil
}

// FindCardByLastFour returns the first card matching lastFour, or nil.
// The match is best-effort card identity during ingestion, not a
// uniqueness guarantee.
func (s *SQLiteStore) FindCardByLastFour(ctx context.Context, lastFour string) (*core.Card, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE last_four = ? ORDER BY created_at LIMIT 1", lastFour)

	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find card by last four: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) cardExists(ctx context.Context, q queryer, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM cards WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check card exists: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx so existence checks
// can run inside or outside a transaction.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanCard(row rowScanner) (core.Card, error) {
	var (
		c         core.Card
		bank      sql.NullString
		lastFour  sql.NullString
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &bank, &lastFour, &createdAt); err != nil {
		return core.Card{}, err
	}
	c.Bank = bank.String
	c.LastFour = lastFour.String
	c.CreatedAt = fromEpoch(createdAt)
	return c, nil
}
