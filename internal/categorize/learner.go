package categorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

// Learner turns manual categorizations into merchant rules.
type Learner struct{}

// Learn creates a rule keyed on the transaction's lower-cased merchant at
// LearnedRulePriority, unless an active rule with the same keyword and
// category already exists. It returns the new rule, or nil when nothing
// was learned.
func (l *Learner) Learn(ctx context.Context, st store.Store, userID int64, txn *model.Transaction) (*model.Rule, error) {
	if txn.CategoryID == nil {
		return nil, nil
	}
	keyword := strings.ToLower(strings.TrimSpace(txn.Merchant))
	if keyword == "" {
		return nil, nil
	}

	existing, err := st.FindRule(ctx, userID, keyword, *txn.CategoryID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	rule := &model.Rule{
		UserID:     userID,
		Keyword:    keyword,
		CategoryID: *txn.CategoryID,
		Priority:   model.LearnedRulePriority,
		IsActive:   true,
	}
	if _, err := st.InsertRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("learning rule for %q: %w", keyword, err)
	}
	return rule, nil
}
