package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
)

func scanAccount(sc rowScanner) (model.Account, error) {
	var (
		a         model.Account
		typ       string
		createdAt string
	)
	if err := sc.Scan(&a.ID, &a.UserID, &a.Name, &typ, &createdAt); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	a.CreatedAt = parseTimestamp(createdAt)
	return a, nil
}

// InsertAccount stores a and sets its ID and CreatedAt.
func (s *SQLStore) InsertAccount(ctx context.Context, a *model.Account) (int64, error) {
	created := s.timestamp()
	id, err := s.insertID(ctx, `INSERT INTO accounts (user_id, name, type, created_at) VALUES (?, ?, ?, ?)`,
		a.UserID, a.Name, string(a.Type), created)
	if err != nil {
		return 0, fmt.Errorf("inserting account %q: %w", a.Name, err)
	}
	a.ID = id
	a.CreatedAt = parseTimestamp(created)
	return id, nil
}

// GetAccount returns an account by ID regardless of owner.
func (s *SQLStore) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	row := s.queryRow(ctx, `SELECT id, user_id, name, type, created_at FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting account %d: %w", id, err)
	}
	return &a, nil
}

// ListAccounts returns the user's accounts ordered by name.
func (s *SQLStore) ListAccounts(ctx context.Context, userID int64) ([]model.Account, error) {
	rows, err := s.query(ctx, `SELECT id, user_id, name, type, created_at FROM accounts
		WHERE user_id = ? ORDER BY name ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
