package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/store"
)

func newInitCommand(opts *options) *cobra.Command {
	var git bool
	var driver, dsn string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg := config.Default()
			if opts.user != 0 {
				cfg.User = opts.user
			}
			if driver != "" {
				cfg.Storage.Driver = driver
			}
			if dsn != "" {
				cfg.Storage.DSN = dsn
			}
			cfg.Git.AutoCommit = git
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, cfg)
		},
	}

	cmd.Flags().BoolVar(&git, "git", false, "initialize a git repository and commit imports")
	cmd.Flags().StringVar(&driver, "driver", "", "storage driver: sqlite or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "storage DSN (default: tally.db in the workspace)")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir string, cfg *config.Config) error {
	dirs := []string{
		"logs",
		importer.InboxDir,
		filepath.Join(importer.InboxDir, "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	gitignore := "tally.db\n.env\nimport/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.DSN(dir))
	if err != nil {
		return err
	}
	defer st.Close()

	seeded, err := categories.NewService(st).Seed(ctx, cfg.User)
	if err != nil {
		return err
	}

	if cfg.Git.AutoCommit {
		if err := gitops.Init(ctx, dir); err != nil {
			return err
		}
		author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
		if _, err := gitops.CommitPaths(ctx, dir, "init: tally workspace", author, config.FileName, ".gitignore"); err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
	}

	success.Fprintf(out, "Initialized tally workspace at %s\n", dir)
	fmt.Fprintf(out, "Created %d default categories for user %d\n", seeded, cfg.User)
	return nil
}
