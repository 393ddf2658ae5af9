package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/tally/internal/logging"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

// ErrEmptyKeyword is returned when a rule keyword is blank.
var ErrEmptyKeyword = errors.New("rule keyword is empty")

// Service applies manual categorizations and manages rules.
type Service struct {
	store    store.Store
	resolver *Resolver
	learner  *Learner
}

// NewService creates a Service using the built-in pattern table.
func NewService(st store.Store) *Service {
	return &Service{store: st, resolver: NewResolver(), learner: &Learner{}}
}

// Resolver returns the service's resolver.
func (s *Service) Resolver() *Resolver { return s.resolver }

// SetCategory sets (or clears, with nil) the category of one of the user's
// transactions and learns a merchant rule from it. The learned rule is
// returned when one was created.
func (s *Service) SetCategory(ctx context.Context, userID, txnID int64, categoryID *int64) (*model.Rule, error) {
	var learned *model.Rule
	err := s.store.InTx(ctx, func(st store.Store) error {
		txn, err := st.GetTransaction(ctx, userID, txnID)
		if err != nil {
			return err
		}
		if categoryID != nil {
			if _, err := st.GetCategory(ctx, userID, *categoryID); err != nil {
				return err
			}
		}
		if err := st.UpdateCategory(ctx, txn.ID, categoryID); err != nil {
			return err
		}
		txn.CategoryID = categoryID
		learned, err = s.learner.Learn(ctx, st, userID, txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	if learned != nil {
		logging.FromContext(ctx).Info().
			Str("keyword", learned.Keyword).
			Int64("category_id", learned.CategoryID).
			Msg("learned rule")
	}
	return learned, nil
}

// BulkSetCategory applies one category to several transactions. Every
// transaction must belong to the user or nothing changes. Returns the
// number updated.
func (s *Service) BulkSetCategory(ctx context.Context, userID int64, txnIDs []int64, categoryID *int64) (int, error) {
	if len(txnIDs) == 0 {
		return 0, nil
	}
	ids := dedupIDs(txnIDs)

	err := s.store.InTx(ctx, func(st store.Store) error {
		txns, err := st.ListTransactions(ctx, store.Filter{UserID: userID, IDs: ids})
		if err != nil {
			return err
		}
		if len(txns) != len(ids) {
			return fmt.Errorf("%d of %d transactions: %w", len(ids)-len(txns), len(ids), store.ErrNotFound)
		}
		if categoryID != nil {
			if _, err := st.GetCategory(ctx, userID, *categoryID); err != nil {
				return err
			}
		}
		for i := range txns {
			if err := st.UpdateCategory(ctx, txns[i].ID, categoryID); err != nil {
				return err
			}
			txns[i].CategoryID = categoryID
			if _, err := s.learner.Learn(ctx, st, userID, &txns[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// AddRule creates an explicit keyword rule. A priority of zero means
// DefaultRulePriority.
func (s *Service) AddRule(ctx context.Context, userID int64, keyword string, categoryID int64, priority int) (*model.Rule, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	if priority == 0 {
		priority = model.DefaultRulePriority
	}
	if _, err := s.store.GetCategory(ctx, userID, categoryID); err != nil {
		return nil, err
	}
	rule := &model.Rule{
		UserID:     userID,
		Keyword:    keyword,
		CategoryID: categoryID,
		Priority:   priority,
		IsActive:   true,
	}
	if _, err := s.store.InsertRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Rules lists the user's rules in resolution order.
func (s *Service) Rules(ctx context.Context, userID int64) ([]model.Rule, error) {
	return s.store.ListRules(ctx, userID)
}

// SetRuleActive enables or disables a rule.
func (s *Service) SetRuleActive(ctx context.Context, userID, ruleID int64, active bool) error {
	return s.store.SetRuleActive(ctx, userID, ruleID, active)
}

// ApplyRules runs the rule chain over the user's uncategorized transactions
// and returns how many were categorized.
func (s *Service) ApplyRules(ctx context.Context, userID int64) (int, error) {
	n := 0
	err := s.store.InTx(ctx, func(st store.Store) error {
		txns, err := st.ListTransactions(ctx, store.Filter{UserID: userID, Uncategorized: true})
		if err != nil {
			return err
		}
		rules, err := st.ListActiveRules(ctx, userID)
		if err != nil {
			return err
		}
		cats, err := st.ListCategories(ctx, userID)
		if err != nil {
			return err
		}
		for _, txn := range txns {
			id, _ := s.resolver.Match(rules, cats, txn.Description, txn.Merchant)
			if id == nil {
				continue
			}
			if err := st.UpdateCategory(ctx, txn.ID, id); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func dedupIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
