package aiclassify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/categorize"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

const userID = int64(1)

var promptID = regexp.MustCompile(`(?m)^ID (\d+):`)

// stubClassifier answers every transaction in the prompt with category
// unless fail says otherwise.
type stubClassifier struct {
	calls    int
	sizes    []int
	category string
	fail     func(call int) error
}

func (s *stubClassifier) Classify(_ context.Context, req Request) (string, error) {
	s.calls++
	ids := promptID.FindAllStringSubmatch(req.Prompt, -1)
	s.sizes = append(s.sizes, len(ids))
	if s.fail != nil {
		if err := s.fail(s.calls); err != nil {
			return "", err
		}
	}
	parts := make([]string, 0, len(ids))
	for _, m := range ids {
		parts = append(parts, fmt.Sprintf("%q: %s", m[1], s.category))
	}
	return "Here you go:\n```json\n{" + strings.Join(parts, ", ") + "}\n```", nil
}

type fixture struct {
	st   *store.SQLStore
	acct *model.Account
	food int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	acct := &model.Account{UserID: userID, Name: "Chequing", Type: model.AccountTypeChecking}
	_, err = st.InsertAccount(ctx, acct)
	require.NoError(t, err)
	food := &model.Category{UserID: userID, Name: "Food & Dining", Color: "#28a745"}
	_, err = st.InsertCategory(ctx, food)
	require.NoError(t, err)
	return &fixture{st: st, acct: acct, food: food.ID}
}

func (f *fixture) addTxns(t *testing.T, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := range n {
		txn := &model.Transaction{NormalizedTransaction: model.NormalizedTransaction{
			AccountID:   f.acct.ID,
			Date:        time.Date(2024, 3, 1+i%28, 0, 0, 0, 0, time.UTC),
			Description: fmt.Sprintf("MYSTERY VENDOR %d", i),
			Amount:      decimal.NewFromInt(int64(10 + i)),
			Type:        model.TxnExpense,
			Merchant:    fmt.Sprintf("MYSTERY VENDOR %d", i),
		}}
		_, err := f.st.InsertTransaction(context.Background(), txn)
		require.NoError(t, err)
		ids = append(ids, txn.ID)
	}
	return ids
}

func (f *fixture) fallback(cls Classifier) *Fallback {
	return NewFallback(f.st, cls, categorize.NewService(f.st))
}

func TestAutoCategorize_Batches(t *testing.T) {
	f := newFixture(t)
	f.addTxns(t, 25)
	stub := &stubClassifier{category: fmt.Sprint(f.food)}

	stats, err := f.fallback(stub).AutoCategorize(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, []int{20, 5}, stub.sizes)
	assert.Equal(t, 25, stats.Total)
	assert.Equal(t, 25, stats.Categorized)
	assert.Zero(t, stats.Failed)
	assert.Empty(t, stats.BatchErrors)

	left, err := f.st.ListTransactions(context.Background(), store.Filter{UserID: userID, Uncategorized: true})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestAutoCategorize_FailedBatchIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.addTxns(t, 25)
	boom := errors.New("503 from upstream")
	stub := &stubClassifier{category: fmt.Sprint(f.food), fail: func(call int) error {
		if call == 1 {
			return boom
		}
		return nil
	}}

	stats, err := f.fallback(stub).AutoCategorize(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls, "a failed batch is not retried")
	assert.Equal(t, 5, stats.Categorized)
	assert.Equal(t, 20, stats.Failed)
	require.Len(t, stats.BatchErrors, 1)
	assert.Equal(t, 0, stats.BatchErrors[0].Batch)
	assert.ErrorIs(t, stats.BatchErrors[0], boom)
}

func TestAutoCategorize_UnknownCategoryIgnored(t *testing.T) {
	f := newFixture(t)
	f.addTxns(t, 3)
	stub := &stubClassifier{category: "9999"}

	stats, err := f.fallback(stub).AutoCategorize(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, stats.Categorized)
	assert.Equal(t, 3, stats.Failed)
}

func TestAutoCategorize_NoCategories(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	acct := &model.Account{UserID: userID, Name: "Visa", Type: model.AccountTypeCreditCard}
	_, err = st.InsertAccount(ctx, acct)
	require.NoError(t, err)
	_, err = st.InsertTransaction(ctx, &model.Transaction{NormalizedTransaction: model.NormalizedTransaction{
		AccountID: acct.ID, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Description: "X", Amount: decimal.NewFromInt(1), Type: model.TxnExpense,
	}})
	require.NoError(t, err)

	stub := &stubClassifier{category: "1"}
	stats, err := NewFallback(st, stub, nil).AutoCategorize(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Total: 1, Failed: 1}, stats)
	assert.Zero(t, stub.calls)
}

func TestNotConfigured(t *testing.T) {
	_, err := NewClassifier(context.Background(), Options{Provider: ProviderChat})
	assert.ErrorIs(t, err, ErrNotConfigured)

	fb := NewFallback(nil, nil, nil)
	_, err = fb.AutoCategorize(context.Background(), userID)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = fb.Suggest(context.Background(), userID, []int64{1})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewClassifier_UnknownProvider(t *testing.T) {
	_, err := NewClassifier(context.Background(), Options{Provider: "carrier-pigeon", APIKey: "k"})
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	f := newFixture(t)
	ids := f.addTxns(t, 2)
	stub := &stubClassifier{category: fmt.Sprint(f.food)}

	got, err := f.fallback(stub).Suggest(context.Background(), userID, []int64{ids[0], ids[1], 424242})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ConfidenceHigh, got[ids[0]].Confidence)
	assert.Equal(t, "Food & Dining", got[ids[0]].CategoryName)

	nullStub := &stubClassifier{category: "null"}
	got, err = f.fallback(nullStub).Suggest(context.Background(), userID, ids[:1])
	require.NoError(t, err)
	assert.Equal(t, Suggestion{CategoryName: NoSuggestion, Confidence: ConfidenceLow}, got[ids[0]])

	// Suggest never writes.
	left, err := f.st.ListTransactions(context.Background(), store.Filter{UserID: userID, Uncategorized: true})
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestApply_LearnsRule(t *testing.T) {
	f := newFixture(t)
	ids := f.addTxns(t, 1)

	rule, err := f.fallback(&stubClassifier{}).Apply(context.Background(), userID, ids[0], f.food)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "mystery vendor 0", rule.Keyword)
	assert.Equal(t, model.LearnedRulePriority, rule.Priority)
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"1": 2}`, `{"1": 2}`, true},
		{"prose", `Sure! {"1": null} Hope that helps {x}`, `{"1": null}`, true},
		{"nested", `{"a": {"b": 1}} trailing`, `{"a": {"b": 1}}`, true},
		{"brace in string", `{"a": "}"}`, `{"a": "}"}`, true},
		{"escaped quote", `{"a": "\"}"}`, `{"a": "\"}"}`, true},
		{"none", `no json here`, "", false},
		{"unbalanced", `{"a": 1`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSuggestions(t *testing.T) {
	batch := []model.Transaction{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	valid := map[int64]bool{10: true, 11: true}

	got, err := ParseSuggestions(`{"1": 10, "2": "11", "3": 99}`, batch, valid)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.NotNil(t, got[1])
	assert.Equal(t, int64(10), *got[1])
	require.NotNil(t, got[2])
	assert.Equal(t, int64(11), *got[2])
	assert.Nil(t, got[3], "unknown category")
	assert.Nil(t, got[4], "missing id")

	_, err = ParseSuggestions("I cannot help with that", batch, valid)
	assert.Error(t, err)
	_, err = ParseSuggestions(`{"1": }`, batch, valid)
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	cats := []model.Category{{ID: 3, Name: "Travel"}}
	batch := []model.Transaction{
		{ID: 7, NormalizedTransaction: model.NormalizedTransaction{
			Description: "AIR CANADA 123", Merchant: "AIR CANADA", Amount: decimal.RequireFromString("450.5"), Type: model.TxnExpense,
		}},
		{ID: 8, NormalizedTransaction: model.NormalizedTransaction{
			Description: "PAYROLL", Amount: decimal.NewFromInt(2000), Type: model.TxnIncome,
		}},
	}
	p := BuildPrompt(batch, cats)
	assert.Contains(t, p, "- Travel (ID: 3)\n")
	assert.Contains(t, p, "ID 7: AIR CANADA 123 | Merchant: AIR CANADA | Amount: $450.50 | Type: expense\n")
	assert.Contains(t, p, "ID 8: PAYROLL | Amount: $2000.00 | Type: income\n")
}

func TestChatClient(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":" {\"1\": 2} "}}]}`)
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "", "secret", time.Second)
	reply, err := c.Classify(context.Background(), Request{System: SystemPrompt, Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, `{"1": 2}`, reply)

	assert.Equal(t, DefaultChatModel, got.Model)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.InDelta(t, 0.1, got.Temperature, 1e-9)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestChatClient_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewChatClient(srv.URL, "m", "k", time.Second).Classify(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewChatClient(srv.URL, "m", "k", 20*time.Millisecond).Classify(context.Background(), Request{})
	assert.Error(t, err)
}
