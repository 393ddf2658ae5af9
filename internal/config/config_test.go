package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.User = 42
	cfg.Storage = StorageConfig{Driver: "postgres", DSN: "postgres://localhost/tally"}
	cfg.Import.DefaultAccount = 3
	cfg.AI.Provider = "gemini"
	cfg.Git.AutoCommit = true

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(1), cfg.User)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "auto", cfg.Import.DefaultFormat)
	assert.Equal(t, 20, cfg.AI.BatchSize)
	assert.Equal(t, DefaultAPIKeyEnv, cfg.AI.APIKeyEnv)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout())
	assert.False(t, cfg.Git.AutoCommit)
	require.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 20, cfg.AI.BatchSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"driver", "storage:\n  driver: mysql\n"},
		{"provider", "ai:\n  provider: oracle\n"},
		{"batch", "ai:\n  batch_size: 0\n"},
		{"syntax", "storage: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDir_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, FileName), Default()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TALLY_TEST_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TALLY_TEST_KEY") })

	cfg, err := LoadDir(dir)
	require.NoError(t, err)
	cfg.AI.APIKeyEnv = "TALLY_TEST_KEY"
	assert.Equal(t, "from-dotenv", cfg.AI.APIKey())
}

func TestLoadEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadEnv(t.TempDir()))
}

func TestDSN(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/work", "tally.db"), cfg.DSN("/work"))

	cfg.Storage.DSN = ":memory:"
	assert.Equal(t, ":memory:", cfg.DSN("/work"))

	cfg.Storage = StorageConfig{Driver: "postgres", DSN: "postgres://db/tally"}
	assert.Equal(t, "postgres://db/tally", cfg.DSN("/work"))
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)
	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, "api_key_env: TALLY_AI_API_KEY")
	assert.Contains(t, contents, "auto_commit: false")
	assert.NotContains(t, contents, "default_account")
}
