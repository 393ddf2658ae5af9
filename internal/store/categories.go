package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
)

const categoryColumns = `id, user_id, name, color, parent_id, created_at`

func scanCategory(sc rowScanner) (model.Category, error) {
	var (
		c         model.Category
		parent    sql.NullInt64
		createdAt string
	)
	if err := sc.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &parent, &createdAt); err != nil {
		return model.Category{}, err
	}
	c.ParentID = intPtr(parent)
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

// ListCategories returns the user's categories ordered by name.
func (s *SQLStore) ListCategories(ctx context.Context, userID int64) ([]model.Category, error) {
	rows, err := s.query(ctx, `SELECT `+categoryColumns+` FROM categories
		WHERE user_id = ? ORDER BY name ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory returns a category owned by userID.
func (s *SQLStore) GetCategory(ctx context.Context, userID, id int64) (*model.Category, error) {
	row := s.queryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}
	return &c, nil
}

// InsertCategory stores c and sets its ID and CreatedAt.
func (s *SQLStore) InsertCategory(ctx context.Context, c *model.Category) (int64, error) {
	created := s.timestamp()
	id, err := s.insertID(ctx, `INSERT INTO categories (user_id, name, color, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?)`, c.UserID, c.Name, c.Color, nullInt(c.ParentID), created)
	if err != nil {
		return 0, fmt.Errorf("inserting category %q: %w", c.Name, err)
	}
	c.ID = id
	c.CreatedAt = parseTimestamp(created)
	return id, nil
}

// UpdateCategoryParent sets or clears a category's parent. Cycle checks are
// the caller's job.
func (s *SQLStore) UpdateCategoryParent(ctx context.Context, userID, id int64, parentID *int64) error {
	res, err := s.exec(ctx, `UPDATE categories SET parent_id = ? WHERE id = ? AND user_id = ?`, nullInt(parentID), id, userID)
	if err != nil {
		return fmt.Errorf("updating parent of category %d: %w", id, err)
	}
	return affectedOne(res, fmt.Sprintf("category %d", id))
}
