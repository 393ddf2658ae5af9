package aiclassify

import (
	"context"
	"fmt"

	"github.com/cleared-dev/tally/internal/categorize"
	"github.com/cleared-dev/tally/internal/logging"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

// DefaultBatchSize is how many transactions go into one model request.
const DefaultBatchSize = 20

const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
	NoSuggestion   = "No suggestion"
)

// BatchError records a failed request. Other batches still run.
type BatchError struct {
	Batch int // zero-based
	Size  int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d transactions): %v", e.Batch, e.Size, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Stats summarizes an AutoCategorize run.
type Stats struct {
	Total       int
	Categorized int
	Failed      int
	BatchErrors []*BatchError
}

// Suggestion is a proposed category for one transaction.
type Suggestion struct {
	CategoryID   *int64
	CategoryName string
	Confidence   string
}

// Fallback runs the model over transactions the rule chain left uncategorized.
type Fallback struct {
	store      store.Store
	classifier Classifier
	manual     *categorize.Service
	batchSize  int
}

// NewFallback creates a Fallback. classifier may be nil, in which case every
// operation returns ErrNotConfigured.
func NewFallback(st store.Store, classifier Classifier, manual *categorize.Service) *Fallback {
	return &Fallback{store: st, classifier: classifier, manual: manual, batchSize: DefaultBatchSize}
}

// WithBatchSize overrides DefaultBatchSize. Non-positive sizes are ignored.
func (f *Fallback) WithBatchSize(n int) *Fallback {
	if n > 0 {
		f.batchSize = n
	}
	return f
}

// AutoCategorize asks the model about every uncategorized transaction the
// user owns and stores the categories it proposes. A failed batch leaves its
// transactions uncategorized and is reported in Stats.BatchErrors.
func (f *Fallback) AutoCategorize(ctx context.Context, userID int64) (*Stats, error) {
	if f.classifier == nil {
		return nil, ErrNotConfigured
	}
	txns, err := f.store.ListTransactions(ctx, store.Filter{UserID: userID, Uncategorized: true})
	if err != nil {
		return nil, fmt.Errorf("listing uncategorized transactions: %w", err)
	}
	stats := &Stats{Total: len(txns)}
	if len(txns) == 0 {
		return stats, nil
	}
	cats, err := f.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	if len(cats) == 0 {
		stats.Failed = stats.Total
		return stats, nil
	}

	suggested, batchErrs, err := f.classify(ctx, txns, cats)
	if err != nil {
		return nil, err
	}
	stats.BatchErrors = batchErrs

	err = f.store.InTx(ctx, func(st store.Store) error {
		for _, t := range txns {
			catID := suggested[t.ID]
			if catID == nil {
				continue
			}
			if err := st.UpdateCategory(ctx, t.ID, catID); err != nil {
				return err
			}
			stats.Categorized++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storing AI categories: %w", err)
	}
	stats.Failed = stats.Total - stats.Categorized

	logging.FromContext(ctx).Info().
		Int64("user_id", userID).
		Int("total", stats.Total).
		Int("categorized", stats.Categorized).
		Int("failed_batches", len(stats.BatchErrors)).
		Msg("AI categorization finished")
	return stats, nil
}

// Suggest returns proposals for the given transactions without changing
// anything. IDs the user does not own are ignored, and transactions in a
// failed batch are absent from the result.
func (f *Fallback) Suggest(ctx context.Context, userID int64, txnIDs []int64) (map[int64]Suggestion, error) {
	if f.classifier == nil {
		return nil, ErrNotConfigured
	}
	out := map[int64]Suggestion{}
	if len(txnIDs) == 0 {
		return out, nil
	}
	txns, err := f.store.ListTransactions(ctx, store.Filter{UserID: userID, IDs: txnIDs})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	if len(txns) == 0 {
		return out, nil
	}
	cats, err := f.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	if len(cats) == 0 {
		return out, nil
	}

	suggested, _, err := f.classify(ctx, txns, cats)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	for txnID, catID := range suggested {
		if catID == nil {
			out[txnID] = Suggestion{CategoryName: NoSuggestion, Confidence: ConfidenceLow}
			continue
		}
		out[txnID] = Suggestion{CategoryID: catID, CategoryName: names[*catID], Confidence: ConfidenceHigh}
	}
	return out, nil
}

// Apply accepts a suggestion. It goes through manual categorization, so a
// merchant rule is learned as well.
func (f *Fallback) Apply(ctx context.Context, userID, txnID, categoryID int64) (*model.Rule, error) {
	return f.manual.SetCategory(ctx, userID, txnID, &categoryID)
}

// classify sends txns in batches. The returned map has an entry for every
// transaction in a successful batch.
func (f *Fallback) classify(ctx context.Context, txns []model.Transaction, cats []model.Category) (map[int64]*int64, []*BatchError, error) {
	log := logging.FromContext(ctx)
	valid := make(map[int64]bool, len(cats))
	for _, c := range cats {
		valid[c.ID] = true
	}

	size := f.batchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	suggested := make(map[int64]*int64, len(txns))
	var batchErrs []*BatchError
	for n, start := 0, 0; start < len(txns); n, start = n+1, start+size {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		end := min(start+size, len(txns))
		batch := txns[start:end]

		reply, err := f.classifier.Classify(ctx, Request{System: SystemPrompt, Prompt: BuildPrompt(batch, cats)})
		if err == nil {
			var got map[int64]*int64
			got, err = ParseSuggestions(reply, batch, valid)
			for id, catID := range got {
				suggested[id] = catID
			}
		}
		if err != nil {
			be := &BatchError{Batch: n, Size: len(batch), Err: err}
			log.Warn().Err(err).Int("batch", n).Int("size", len(batch)).Msg("AI batch failed")
			batchErrs = append(batchErrs, be)
		}
	}
	return suggested, batchErrs, nil
}
