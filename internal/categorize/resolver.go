// Package categorize assigns categories to transactions and learns rules
// from manual corrections.
package categorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

// Source says which link of the rule chain produced a category.
type Source string

const (
	SourceRule    Source = "rule"
	SourceBuiltin Source = "builtin"
	SourceNone    Source = "none"
)

// Resolver runs the rule chain: the user's active rules, then the built-in
// pattern table. The first match wins.
type Resolver struct {
	sets []compiledSet
}

// NewResolver returns a Resolver using the embedded pattern table.
func NewResolver() *Resolver {
	r, err := NewResolverWithPatterns(BuiltinPatterns())
	if err != nil {
		panic(err)
	}
	return r
}

// NewResolverWithPatterns returns a Resolver using sets in place of the
// built-in table.
func NewResolverWithPatterns(sets []PatternSet) (*Resolver, error) {
	compiled, err := compilePatterns(sets)
	if err != nil {
		return nil, err
	}
	return &Resolver{sets: compiled}, nil
}

// Resolve loads the user's rules and categories and resolves one
// transaction. Rules are read fresh on every call.
func (r *Resolver) Resolve(ctx context.Context, st store.Store, userID int64, description, merchant string) (*int64, Source, error) {
	rules, err := st.ListActiveRules(ctx, userID)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("loading rules: %w", err)
	}
	cats, err := st.ListCategories(ctx, userID)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("loading categories: %w", err)
	}
	id, src := r.Match(rules, cats, description, merchant)
	return id, src, nil
}

// Match resolves against already-loaded rules and categories. rules must be
// in resolution order (priority descending, then oldest first).
func (r *Resolver) Match(rules []model.Rule, cats []model.Category, description, merchant string) (*int64, Source) {
	text := SearchText(description, merchant)

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		kw := strings.ToLower(rule.Keyword)
		if kw != "" && strings.Contains(text, kw) {
			id := rule.CategoryID
			return &id, SourceRule
		}
	}

	byName := make(map[string]int64, len(cats))
	for _, c := range cats {
		byName[strings.ToLower(c.Name)] = c.ID
	}
	for _, set := range r.sets {
		id, ok := byName[set.category]
		if !ok {
			continue
		}
		for _, re := range set.res {
			if re.MatchString(text) {
				return &id, SourceBuiltin
			}
		}
	}
	return nil, SourceNone
}

// SearchText is the lower-cased text rules and patterns are matched against.
func SearchText(description, merchant string) string {
	return strings.ToLower(description + " " + merchant)
}
