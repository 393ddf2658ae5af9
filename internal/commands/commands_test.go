package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/aiclassify"
	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/commands"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/importlog"
)

func runTally(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// workspace initializes a workspace with one checking account (id 1).
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runTally(t, "init", dir)
	require.NoError(t, err)
	_, err = runTally(t, "--dir", dir, "account", "add", "--name", "Chequing")
	require.NoError(t, err)
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runTally(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized tally workspace")
	assert.Contains(t, out, "Created 10 default categories")

	for _, d := range []string{"logs", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir())
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.User)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)

	_, err = os.Stat(filepath.Join(dir, "tally.db"))
	assert.NoError(t, err)
}

func TestInit_RefusesExistingWorkspace(t *testing.T) {
	dir := t.TempDir()
	_, err := runTally(t, "init", dir)
	require.NoError(t, err)

	_, err = runTally(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCommands_RequireWorkspace(t *testing.T) {
	_, err := runTally(t, "--dir", t.TempDir(), "account", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tally init")
}

func TestAccount_AddAndList(t *testing.T) {
	dir := workspace(t)

	_, err := runTally(t, "--dir", dir, "account", "add", "--name", "Visa", "--type", "credit_card")
	require.NoError(t, err)
	_, err = runTally(t, "--dir", dir, "account", "add", "--name", "Bad", "--type", "piggy_bank")
	require.Error(t, err)

	out, err := runTally(t, "--dir", dir, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Chequing")
	assert.Contains(t, out, "credit_card")
	assert.NotContains(t, out, "Bad")
}

func TestImport_CategorizeAndReport(t *testing.T) {
	dir := workspace(t)
	fixture := filepath.Join("..", "importer", "testdata", "cibc.csv")

	out, err := runTally(t, "--dir", dir, "import", fixture, "--account", "1", "--format", "cibc")
	require.NoError(t, err)
	assert.Contains(t, out, "2 new, 0 duplicates, 1 skipped")

	out, err = runTally(t, "--dir", dir, "import", fixture, "--account", "1", "--format", "cibc")
	require.NoError(t, err)
	assert.Contains(t, out, "0 new, 2 duplicates")

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	out, err = runTally(t, "--dir", dir, "transactions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "COFFEE SHOP")
	assert.Contains(t, out, "Food & Dining")
	assert.Contains(t, out, "Income")

	out, err = runTally(t, "--dir", dir, "categorize", "set", "1", "Shopping")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction 1 set to Shopping")

	out, err = runTally(t, "--dir", dir, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Shopping")

	out, err = runTally(t, "--dir", dir, "transactions", "list", "--category", "Shopping")
	require.NoError(t, err)
	assert.Contains(t, out, "COFFEE SHOP")
	assert.NotContains(t, out, "SALARY")

	out, err = runTally(t, "--dir", dir, "report", "--period", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "Total spent:     $4.50")
	assert.Contains(t, out, "Top category:    Shopping")

	xlsx := filepath.Join(dir, "report.xlsx")
	_, err = runTally(t, "--dir", dir, "report", "--period", "all", "--xlsx", xlsx)
	require.NoError(t, err)
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestImport_RequiresAccount(t *testing.T) {
	dir := workspace(t)
	_, err := runTally(t, "--dir", dir, "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--account")
}

func TestReport_BadPeriod(t *testing.T) {
	dir := workspace(t)
	_, err := runTally(t, "--dir", dir, "report", "--period", "fortnight")
	require.Error(t, err)
}

func TestRules_AddDisableEnable(t *testing.T) {
	dir := workspace(t)

	out, err := runTally(t, "--dir", dir, "rules", "add", "netflix", "Entertainment", "--priority", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `"netflix" -> Entertainment (priority 3)`)

	_, err = runTally(t, "--dir", dir, "rules", "disable", "1")
	require.NoError(t, err)
	out, err = runTally(t, "--dir", dir, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "false")

	_, err = runTally(t, "--dir", dir, "rules", "enable", "1")
	require.NoError(t, err)

	_, err = runTally(t, "--dir", dir, "rules", "add", "x", "No Such Category")
	require.Error(t, err)
}

func TestCategories_ParentCycle(t *testing.T) {
	dir := workspace(t)

	_, err := runTally(t, "--dir", dir, "categories", "add", "Coffee", "--color", "#6f4e37", "--parent", "Food & Dining")
	require.NoError(t, err)

	_, err = runTally(t, "--dir", dir, "categories", "parent", "Food & Dining", "Coffee")
	require.ErrorIs(t, err, categories.ErrCycle)

	_, err = runTally(t, "--dir", dir, "categories", "parent", "Coffee", "none")
	require.NoError(t, err)

	out, err := runTally(t, "--dir", dir, "categories", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "Coffee,#6f4e37,")
}

func TestAI_NotConfigured(t *testing.T) {
	t.Setenv(config.DefaultAPIKeyEnv, "")
	dir := workspace(t)

	_, err := runTally(t, "--dir", dir, "ai", "run")
	require.ErrorIs(t, err, aiclassify.ErrNotConfigured)

	_, err = runTally(t, "--dir", dir, "sweep", "--once")
	require.ErrorIs(t, err, aiclassify.ErrNotConfigured)
}

func TestAI_KeyCheckedBeforeStoreOpens(t *testing.T) {
	t.Setenv(config.DefaultAPIKeyEnv, "")
	dir := workspace(t)

	cfgPath := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.Storage.DSN = "fresh.db"
	require.NoError(t, config.Save(cfgPath, cfg))

	for _, args := range [][]string{{"ai", "run"}, {"ai", "suggest", "1"}, {"sweep", "--once"}} {
		_, err := runTally(t, append([]string{"--dir", dir}, args...)...)
		require.ErrorIs(t, err, aiclassify.ErrNotConfigured, "%v", args)
	}
	_, err = os.Stat(filepath.Join(dir, "fresh.db"))
	assert.True(t, os.IsNotExist(err), "database should not be created")
}

func TestSweep_BadSchedule(t *testing.T) {
	t.Setenv(config.DefaultAPIKeyEnv, "test-key")
	dir := workspace(t)

	_, err := runTally(t, "--dir", dir, "sweep", "--schedule", "every now and then")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing schedule")
}
