package storage

import (
	"context"
	"fmt"
	"log/slog"

	"finans/internal/core"
)

// ListCategories returns the fixed built-in set followed by persisted
// custom categories ordered by name. Built-ins are never stored.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	categories := make([]core.Category, 0, len(core.DefaultCategories))
	categories = append(categories, core.DefaultCategories...)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, icon, color FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.IsCustom = true
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory persists a user-defined category. Names are unique
// among persisted categories.
func (s *SQLiteStore) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (id, name, icon, color, is_custom, created_at) VALUES (?, ?, ?, ?, 1, strftime('%s','now'))",
		c.ID, c.Name, c.Icon, c.Color)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name)
	return nil
}

// DeleteCategory removes a custom category. Transactions labeled with
// its name keep their label; the breakdown simply stops matching it to
// a persisted category.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
