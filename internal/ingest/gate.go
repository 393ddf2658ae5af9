// Package ingest turns uploaded statements into stored, categorized
// transactions.
package ingest

import (
	"context"
	"fmt"

	"github.com/cleared-dev/tally/internal/categorize"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/normalize"
	"github.com/cleared-dev/tally/internal/store"
)

// Gate admits normalized transactions into the store at most once per
// dedup key.
type Gate struct {
	resolver *categorize.Resolver
}

// NewGate creates a Gate that categorizes with resolver.
func NewGate(resolver *categorize.Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Admit stores n unless a transaction with the same key exists. On insert
// the merchant is derived from the description and a category resolved for
// ownerID. It returns the stored transaction and whether it was created;
// for a duplicate the existing transaction is returned.
func (g *Gate) Admit(ctx context.Context, st store.Store, ownerID int64, n model.NormalizedTransaction) (*model.Transaction, bool, error) {
	dup, err := st.FindDuplicate(ctx, n.Key())
	if err != nil {
		return nil, false, err
	}
	if dup != nil {
		return dup, false, nil
	}

	n.Merchant = normalize.Merchant(n.Description)
	categoryID, src, err := g.resolver.Resolve(ctx, st, ownerID, n.Description, n.Merchant)
	if err != nil {
		return nil, false, err
	}

	txn := &model.Transaction{NormalizedTransaction: n, CategoryID: categoryID}
	if _, err := st.InsertTransaction(ctx, txn); err != nil {
		return nil, false, fmt.Errorf("admitting %s: %w", n.Key(), err)
	}
	if categoryID != nil {
		logCategorized(ctx, txn, src)
	}
	return txn, true, nil
}
