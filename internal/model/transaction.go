package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TxnType is the direction of money for a transaction.
type TxnType string

const (
	TxnExpense TxnType = "expense"
	TxnIncome  TxnType = "income"
)

// Valid reports whether t is a known transaction type.
func (t TxnType) Valid() bool {
	return t == TxnExpense || t == TxnIncome
}

// DateFormat is the canonical calendar date layout used for storage and keys.
const DateFormat = "2006-01-02"

const (
	// MaxDescriptionLen caps stored descriptions, in runes.
	MaxDescriptionLen = 500
	// MaxMerchantLen caps derived merchant names, in runes.
	MaxMerchantLen = 200
)

// NormalizedTransaction is a parsed row after amount, date and text
// normalization. Amount is always positive; Type carries the direction.
type NormalizedTransaction struct {
	AccountID   int64
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        TxnType
	Merchant    string
}

// Key returns the dedup key for the transaction.
func (n NormalizedTransaction) Key() DedupKey {
	return DedupKey{
		AccountID:   n.AccountID,
		Date:        n.Date.Format(DateFormat),
		Description: n.Description,
		Amount:      n.Amount.StringFixed(2),
	}
}

// Transaction is a persisted transaction.
type Transaction struct {
	NormalizedTransaction
	ID         int64
	CategoryID *int64 // nil = uncategorized
	Notes      string
	CreatedAt  time.Time
}

// Categorized reports whether the transaction has a category.
func (t Transaction) Categorized() bool {
	return t.CategoryID != nil
}

// DedupKey identifies a transaction within an account. At most one persisted
// transaction exists per key.
type DedupKey struct {
	AccountID   int64
	Date        string // YYYY-MM-DD
	Description string
	Amount      string // fixed 2 places
}

func (k DedupKey) String() string {
	return fmt.Sprintf("%d|%s|%s|%s", k.AccountID, k.Date, k.Amount, k.Description)
}
