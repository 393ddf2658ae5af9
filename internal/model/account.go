package model

import "time"

// AccountType classifies a bank account.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeInvestment AccountType = "investment"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard, AccountTypeInvestment:
		return true
	}
	return false
}

// Account is a user's bank account that transactions are imported into.
type Account struct {
	ID        int64
	UserID    int64
	Name      string
	Type      AccountType
	CreatedAt time.Time
}

// Category is a user-defined spending category. ParentID links form a forest.
type Category struct {
	ID        int64
	UserID    int64
	Name      string
	Color     string // hex, e.g. "#007bff"
	ParentID  *int64
	CreatedAt time.Time
}

const (
	// DefaultRulePriority is the priority of rules created by the user.
	DefaultRulePriority = 1
	// LearnedRulePriority is the priority of rules derived from manual corrections.
	LearnedRulePriority = 5
)

// Rule maps a case-insensitive keyword to a category. Higher priority wins;
// ties go to the older rule.
type Rule struct {
	ID         int64
	UserID     int64
	Keyword    string
	CategoryID int64
	Priority   int
	IsActive   bool
	CreatedAt  time.Time
}
