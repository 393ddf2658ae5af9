package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

const txnColumns = `t.id, t.account_id, t.date, t.description, t.amount, t.type, t.merchant, t.category_id, t.notes, t.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc rowScanner) (model.Transaction, error) {
	var (
		t         model.Transaction
		date      string
		amount    decimal.Decimal
		typ       string
		category  sql.NullInt64
		createdAt string
	)
	err := sc.Scan(&t.ID, &t.AccountID, &date, &t.Description, &amount, &typ, &t.Merchant, &category, &t.Notes, &createdAt)
	if err != nil {
		return model.Transaction{}, err
	}
	d, err := time.Parse(model.DateFormat, date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing stored date %q: %w", date, err)
	}
	t.Date = d
	t.Amount = amount
	t.Type = model.TxnType(typ)
	t.CategoryID = intPtr(category)
	t.CreatedAt = parseTimestamp(createdAt)
	return t, nil
}

// FindDuplicate returns the transaction with the same dedup key, or nil.
func (s *SQLStore) FindDuplicate(ctx context.Context, key model.DedupKey) (*model.Transaction, error) {
	row := s.queryRow(ctx, `SELECT `+txnColumns+` FROM transactions t
		WHERE t.account_id = ? AND t.date = ? AND t.description = ? AND t.amount = ?`,
		key.AccountID, key.Date, key.Description, key.Amount)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding duplicate: %w", err)
	}
	return &t, nil
}

// InsertTransaction stores txn and sets its ID and CreatedAt.
func (s *SQLStore) InsertTransaction(ctx context.Context, txn *model.Transaction) (int64, error) {
	created := s.timestamp()
	id, err := s.insertID(ctx, `INSERT INTO transactions
		(account_id, date, description, amount, type, merchant, category_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.AccountID, txn.Date.Format(model.DateFormat), txn.Description, txn.Amount.StringFixed(2),
		string(txn.Type), txn.Merchant, nullInt(txn.CategoryID), txn.Notes, created)
	if err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}
	txn.ID = id
	txn.CreatedAt = parseTimestamp(created)
	return id, nil
}

// ListTransactions returns the user's transactions matching f, newest first.
func (s *SQLStore) ListTransactions(ctx context.Context, f Filter) ([]model.Transaction, error) {
	var (
		where = []string{"a.user_id = ?"}
		args  = []any{f.UserID}
	)
	if f.AccountID != 0 {
		where = append(where, "t.account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Uncategorized {
		where = append(where, "t.category_id IS NULL")
	} else if f.CategoryID != nil {
		where = append(where, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, f.From.Format(model.DateFormat))
	}
	if !f.To.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, f.To.Format(model.DateFormat))
	}
	if len(f.IDs) > 0 {
		where = append(where, "t.id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}

	q := `SELECT ` + txnColumns + ` FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.date DESC, t.id DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTransaction returns a transaction owned by userID.
func (s *SQLStore) GetTransaction(ctx context.Context, userID, id int64) (*model.Transaction, error) {
	row := s.queryRow(ctx, `SELECT `+txnColumns+` FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = ? AND a.user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction %d: %w", id, err)
	}
	return &t, nil
}

// UpdateCategory sets or clears a transaction's category.
func (s *SQLStore) UpdateCategory(ctx context.Context, transactionID int64, categoryID *int64) error {
	res, err := s.exec(ctx, `UPDATE transactions SET category_id = ? WHERE id = ?`, nullInt(categoryID), transactionID)
	if err != nil {
		return fmt.Errorf("updating category of transaction %d: %w", transactionID, err)
	}
	return affectedOne(res, fmt.Sprintf("transaction %d", transactionID))
}
