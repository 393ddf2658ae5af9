// Package commands wires the tally CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/aiclassify"
	"github.com/cleared-dev/tally/internal/buildinfo"
	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/categorize"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/logging"
	"github.com/cleared-dev/tally/internal/store"
)

// options are the flags shared by every command.
type options struct {
	dir  string
	user int64
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Import bank statements and categorize spending",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", ".", "workspace directory")
	rootCmd.PersistentFlags().Int64Var(&opts.user, "user", 0, "user id (default: user in tally.yaml)")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAccountCommand(opts),
		newImportCommand(opts),
		newDetectCommand(),
		newTransactionsCommand(opts),
		newCategorizeCommand(opts),
		newRulesCommand(opts),
		newCategoriesCommand(opts),
		newAICommand(opts),
		newSweepCommand(opts),
		newReportCommand(opts),
	)
	return rootCmd
}

// app is an opened workspace.
type app struct {
	root  string
	cfg   *config.Config
	store *store.SQLStore
	user  int64
	out   io.Writer
}

// open loads the workspace config, builds the logger and opens the store.
func (o *options) open(cmd *cobra.Command) (*app, context.Context, error) {
	root, cfg, ctx, err := o.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	a, err := o.connect(ctx, cmd, root, cfg)
	return a, ctx, err
}

// openAI is open for commands that need the classifier. The API key is
// checked before the store is touched.
func (o *options) openAI(cmd *cobra.Command) (*app, context.Context, aiclassify.Classifier, error) {
	root, cfg, ctx, err := o.load(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	cls, err := aiclassify.NewClassifier(ctx, aiclassify.Options{
		Provider: cfg.AI.Provider,
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey(),
		Timeout:  cfg.AI.Timeout(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := o.connect(ctx, cmd, root, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, ctx, cls, nil
}

// load reads the workspace config and builds the logger.
func (o *options) load(cmd *cobra.Command) (string, *config.Config, context.Context, error) {
	root, err := filepath.Abs(o.dir)
	if err != nil {
		return "", nil, nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadDir(root)
	if err != nil {
		return "", nil, nil, fmt.Errorf("loading workspace %s (run tally init first): %w", root, err)
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Console)
	return root, cfg, logging.WithContext(cmd.Context(), logger), nil
}

func (o *options) connect(ctx context.Context, cmd *cobra.Command, root string, cfg *config.Config) (*app, error) {
	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.DSN(root))
	if err != nil {
		return nil, err
	}
	user := o.user
	if user == 0 {
		user = cfg.User
	}
	return &app{root: root, cfg: cfg, store: st, user: user, out: cmd.OutOrStdout()}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) categories() *categories.Service {
	return categories.NewService(a.store)
}

func (a *app) categorizer() *categorize.Service {
	return categorize.NewService(a.store)
}

// fallback wraps cls in the AI fallback over the workspace store.
func (a *app) fallback(cls aiclassify.Classifier) *aiclassify.Fallback {
	return aiclassify.NewFallback(a.store, cls, a.categorizer()).WithBatchSize(a.cfg.AI.BatchSize)
}

// categoryRef resolves a category by ID or name; "none" clears.
func (a *app) categoryRef(ctx context.Context, ref string) (*int64, error) {
	if strings.EqualFold(strings.TrimSpace(ref), "none") {
		return nil, nil
	}
	c, err := a.categories().Find(ctx, a.user, ref)
	if err != nil {
		return nil, err
	}
	return &c.ID, nil
}

// categoryNames maps the user's category IDs to names.
func (a *app) categoryNames(ctx context.Context) (map[int64]string, error) {
	cats, err := a.store.ListCategories(ctx, a.user)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func parseIDs(args []string, what string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := parseID(s, what)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
