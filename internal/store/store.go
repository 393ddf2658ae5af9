// Package store persists accounts, categories, rules and transactions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrNotFound is returned when a record does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("not found")

// Filter selects transactions owned by a user. Zero fields do not filter.
type Filter struct {
	UserID        int64
	AccountID     int64
	CategoryID    *int64
	Uncategorized bool
	Type          model.TxnType
	From          time.Time // inclusive
	To            time.Time // inclusive
	IDs           []int64
	Limit         int
}

// Store is the record store used by ingestion, categorization and reports.
type Store interface {
	FindDuplicate(ctx context.Context, key model.DedupKey) (*model.Transaction, error)
	InsertTransaction(ctx context.Context, txn *model.Transaction) (int64, error)
	ListTransactions(ctx context.Context, f Filter) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (*model.Transaction, error)
	UpdateCategory(ctx context.Context, transactionID int64, categoryID *int64) error

	ListActiveRules(ctx context.Context, userID int64) ([]model.Rule, error)
	ListRules(ctx context.Context, userID int64) ([]model.Rule, error)
	FindRule(ctx context.Context, userID int64, keyword string, categoryID int64) (*model.Rule, error)
	InsertRule(ctx context.Context, r *model.Rule) (int64, error)
	SetRuleActive(ctx context.Context, userID, id int64, active bool) error

	ListCategories(ctx context.Context, userID int64) ([]model.Category, error)
	GetCategory(ctx context.Context, userID, id int64) (*model.Category, error)
	InsertCategory(ctx context.Context, c *model.Category) (int64, error)
	UpdateCategoryParent(ctx context.Context, userID, id int64, parentID *int64) error

	InsertAccount(ctx context.Context, a *model.Account) (int64, error)
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]model.Account, error)

	// InTx runs fn in a single database transaction. fn's Store sees its own
	// writes; any error rolls everything back.
	InTx(ctx context.Context, fn func(Store) error) error
}
