package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/importlog"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

const owner = int64(7)

type fixture struct {
	st   *store.SQLStore
	svc  *Service
	acct *model.Account
	cats map[string]int64
	root string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	acct := &model.Account{UserID: owner, Name: "CIBC Visa", Type: model.AccountTypeCreditCard}
	_, err = st.InsertAccount(ctx, acct)
	require.NoError(t, err)

	catSvc := categories.NewService(st)
	_, err = catSvc.Seed(ctx, owner)
	require.NoError(t, err)
	list, err := catSvc.List(ctx, owner)
	require.NoError(t, err)
	cats := map[string]int64{}
	for _, c := range list {
		cats[c.Name] = c.ID
	}

	root := t.TempDir()
	return &fixture{
		st:   st,
		svc:  NewService(st, nil, nil).WithImportLog(root),
		acct: acct,
		cats: cats,
		root: root,
	}
}

func (f *fixture) txns(t *testing.T) []model.Transaction {
	t.Helper()
	out, err := f.st.ListTransactions(context.Background(), store.Filter{UserID: owner})
	require.NoError(t, err)
	return out
}

func byDescription(txns []model.Transaction) map[string]model.Transaction {
	m := make(map[string]model.Transaction, len(txns))
	for _, t := range txns {
		m[t.Description] = t
	}
	return m
}

func TestIngest_CIBCEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := filepath.Join("..", "importer", "testdata", "cibc.csv")

	res, err := f.svc.IngestFile(ctx, path, f.acct.ID, owner, "cibc")
	require.NoError(t, err)
	assert.Equal(t, importer.FormatCIBC, res.Format)
	assert.False(t, res.Detected)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Categorized)
	assert.Zero(t, res.Duplicates)
	require.Len(t, res.Rows, 1)

	got := byDescription(f.txns(t))
	require.Len(t, got, 2)
	coffee := got["COFFEE SHOP"]
	require.NotNil(t, coffee.CategoryID)
	assert.Equal(t, f.cats["Food & Dining"], *coffee.CategoryID)
	assert.Equal(t, model.TxnExpense, coffee.Type)
	assert.Equal(t, "4.50", coffee.Amount.StringFixed(2))
	assert.Equal(t, "COFFEE SHOP", coffee.Merchant)

	salary := got["SALARY DEPOSIT"]
	assert.Equal(t, model.TxnIncome, salary.Type)
	require.NotNil(t, salary.CategoryID)
	assert.Equal(t, f.cats["Income"], *salary.CategoryID)

	again, err := f.svc.IngestFile(ctx, path, f.acct.ID, owner, "cibc")
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, 2, again.Duplicates)
	assert.Len(t, f.txns(t), 2)
	assert.NotEqual(t, res.RunID, again.RunID)

	entries, err := importlog.Read(f.root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, res.RunID, entries[0].RunID)
	assert.Equal(t, "cibc.csv", entries[0].File)
	assert.Equal(t, 2, entries[0].Created)
	assert.Equal(t, 2, entries[1].Duplicates)
}

func TestIngest_AutoDetect(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.IngestFile(context.Background(), filepath.Join("..", "importer", "testdata", "td.csv"), f.acct.ID, owner, "auto")
	require.NoError(t, err)
	assert.Equal(t, importer.FormatTD, res.Format)
	assert.True(t, res.Detected)
	assert.Equal(t, 2, res.Created)
}

func TestIngest_UnknownHintFallsBackToGeneric(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.IngestFile(context.Background(), filepath.Join("..", "importer", "testdata", "generic.csv"), f.acct.ID, owner, "first_national")
	require.NoError(t, err)
	assert.Equal(t, importer.FormatGeneric, res.Format)
	assert.True(t, res.Fallback)
	assert.Equal(t, 2, res.Created)
}

func TestIngest_DuplicateWithinFile(t *testing.T) {
	f := newFixture(t)
	data := "2024-02-01,PARKING LOT,12.00,\n2024-02-01,PARKING LOT,12.00,\n2024-02-01,PARKING LOT,12.50,\n"
	res, err := f.svc.Ingest(context.Background(), Request{
		Name: "dup.csv", Reader: strings.NewReader(data), AccountID: f.acct.ID, OwnerID: owner, FormatHint: "cibc",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Duplicates)
}

func TestIngest_SameRowOtherAccountIsNotDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := &model.Account{UserID: owner, Name: "Chequing", Type: model.AccountTypeChecking}
	_, err := f.st.InsertAccount(ctx, other)
	require.NoError(t, err)

	data := "2024-02-01,PARKING LOT,12.00,\n"
	for _, id := range []int64{f.acct.ID, other.ID} {
		res, err := f.svc.Ingest(ctx, Request{Name: "p.csv", Reader: strings.NewReader(data), AccountID: id, OwnerID: owner, FormatHint: "cibc"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
	}
}

func TestIngest_RuleBeatsBuiltin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.st.InsertRule(ctx, &model.Rule{UserID: owner, Keyword: "coffee", CategoryID: f.cats["Shopping"], Priority: 1, IsActive: true})
	require.NoError(t, err)

	_, err = f.svc.IngestFile(ctx, filepath.Join("..", "importer", "testdata", "cibc.csv"), f.acct.ID, owner, "cibc")
	require.NoError(t, err)

	coffee := byDescription(f.txns(t))["COFFEE SHOP"]
	require.NotNil(t, coffee.CategoryID)
	assert.Equal(t, f.cats["Shopping"], *coffee.CategoryID)
}

func TestIngest_AccountOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, Request{Name: "x.csv", Reader: strings.NewReader(""), AccountID: f.acct.ID, OwnerID: owner + 1, FormatHint: "auto"})
	assert.ErrorIs(t, err, ErrAccountNotOwned)

	_, err = f.svc.Ingest(ctx, Request{Name: "x.csv", Reader: strings.NewReader(""), AccountID: 999, OwnerID: owner, FormatHint: "auto"})
	assert.ErrorIs(t, err, ErrAccountNotOwned)
}

func TestIngest_ParseFailureCommitsNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.IngestFile(context.Background(), filepath.Join("..", "importer", "testdata", "cibc.csv"), f.acct.ID, owner, "simplii")
	require.Error(t, err)
	assert.True(t, importer.IsParseFailure(err))
	assert.Empty(t, f.txns(t))

	entries, err := importlog.Read(f.root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngest_UnreadableFile(t *testing.T) {
	tests := []struct {
		hint string
		want string
	}{
		{"", "parsing auto statement: unreadable file"},
		{"auto", "parsing auto statement: unreadable file"},
		{"td", "parsing td statement: unreadable file"},
	}
	for _, tt := range tests {
		t.Run("hint "+tt.hint, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Ingest(context.Background(), Request{
				Name:       "broken.csv",
				Reader:     iotest.ErrReader(errors.New("disk gone")),
				AccountID:  f.acct.ID,
				OwnerID:    owner,
				FormatHint: tt.hint,
			})
			require.Error(t, err)
			assert.True(t, importer.IsParseFailure(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "disk gone")
		})
	}
}

func TestIngestInbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox := filepath.Join(f.root, importer.InboxDir)
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	data, err := os.ReadFile(filepath.Join("..", "importer", "testdata", "cibc.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "jan.csv"), data, 0o644))

	results, err := f.svc.IngestInbox(ctx, f.root, f.acct.ID, owner, "cibc")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Created)

	_, err = os.Stat(filepath.Join(inbox, "jan.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(inbox, "processed", "jan.csv"))
	assert.NoError(t, err)
}
