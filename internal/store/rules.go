package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
)

const ruleColumns = `id, user_id, keyword, category_id, priority, is_active, created_at`

func scanRule(sc rowScanner) (model.Rule, error) {
	var (
		r         model.Rule
		createdAt string
	)
	if err := sc.Scan(&r.ID, &r.UserID, &r.Keyword, &r.CategoryID, &r.Priority, &r.IsActive, &createdAt); err != nil {
		return model.Rule{}, err
	}
	r.CreatedAt = parseTimestamp(createdAt)
	return r, nil
}

func (s *SQLStore) listRules(ctx context.Context, q string, args ...any) ([]model.Rule, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var out []model.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListActiveRules returns the user's active rules, highest priority first
// and oldest first within a priority.
func (s *SQLStore) ListActiveRules(ctx context.Context, userID int64) ([]model.Rule, error) {
	return s.listRules(ctx, `SELECT `+ruleColumns+` FROM rules
		WHERE user_id = ? AND is_active = ?
		ORDER BY priority DESC, id ASC`, userID, true)
}

// ListRules returns all of the user's rules in resolution order.
func (s *SQLStore) ListRules(ctx context.Context, userID int64) ([]model.Rule, error) {
	return s.listRules(ctx, `SELECT `+ruleColumns+` FROM rules
		WHERE user_id = ?
		ORDER BY priority DESC, id ASC`, userID)
}

// FindRule returns an active rule mapping keyword (case-insensitively) to
// categoryID, or nil.
func (s *SQLStore) FindRule(ctx context.Context, userID int64, keyword string, categoryID int64) (*model.Rule, error) {
	row := s.queryRow(ctx, `SELECT `+ruleColumns+` FROM rules
		WHERE user_id = ? AND lower(keyword) = lower(?) AND category_id = ? AND is_active = ?
		ORDER BY id ASC LIMIT 1`, userID, keyword, categoryID, true)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding rule: %w", err)
	}
	return &r, nil
}

// InsertRule stores r and sets its ID and CreatedAt.
func (s *SQLStore) InsertRule(ctx context.Context, r *model.Rule) (int64, error) {
	created := s.timestamp()
	id, err := s.insertID(ctx, `INSERT INTO rules (user_id, keyword, category_id, priority, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, r.UserID, r.Keyword, r.CategoryID, r.Priority, r.IsActive, created)
	if err != nil {
		return 0, fmt.Errorf("inserting rule: %w", err)
	}
	r.ID = id
	r.CreatedAt = parseTimestamp(created)
	return id, nil
}

// SetRuleActive enables or disables one of the user's rules.
func (s *SQLStore) SetRuleActive(ctx context.Context, userID, id int64, active bool) error {
	res, err := s.exec(ctx, `UPDATE rules SET is_active = ? WHERE id = ? AND user_id = ?`, active, id, userID)
	if err != nil {
		return fmt.Errorf("updating rule %d: %w", id, err)
	}
	return affectedOne(res, fmt.Sprintf("rule %d", id))
}
