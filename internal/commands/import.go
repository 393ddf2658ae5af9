package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/categorize"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/importlog"
	"github.com/cleared-dev/tally/internal/ingest"
	"github.com/cleared-dev/tally/internal/logging"
)

func newImportCommand(opts *options) *cobra.Command {
	var accountID int64
	var format string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a bank statement, or every statement in import/",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if accountID == 0 {
				accountID = a.cfg.Import.DefaultAccount
			}
			if accountID == 0 {
				return fmt.Errorf("--account is required")
			}
			if format == "" {
				format = a.cfg.Import.DefaultFormat
			}
			file := ""
			if len(args) > 0 {
				file = args[0]
			}
			return runImport(ctx, a, file, accountID, format)
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id to import into")
	cmd.Flags().StringVar(&format, "format", "", "auto, "+formatList()+" (default from tally.yaml)")

	return cmd
}

func formatList() string {
	formats := importer.DefaultRegistry().Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func runImport(ctx context.Context, a *app, file string, accountID int64, format string) error {
	svc := ingest.NewService(a.store, nil, categorize.NewResolver()).WithImportLog(a.root)

	var (
		results []*ingest.Result
		err     error
	)
	if file != "" {
		var res *ingest.Result
		if res, err = svc.IngestFile(ctx, file, accountID, a.user, format); res != nil {
			results = append(results, res)
		}
	} else {
		results, err = svc.IngestInbox(ctx, a.root, accountID, a.user, format)
	}
	for _, res := range results {
		printResult(a.out, res)
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(a.out, "No statements in %s\n", filepath.Join(a.root, importer.InboxDir))
		return nil
	}
	return commitImport(ctx, a, results)
}

func printResult(w io.Writer, res *ingest.Result) {
	how := "as"
	if res.Detected {
		how = "detected as"
	}
	success.Fprintf(w, "Imported %s %s %s: %d new, %d duplicates, %d skipped, %d categorized\n",
		res.File, how, res.Format, res.Created, res.Duplicates, res.Skipped, res.Categorized)
	if res.Fallback {
		warning.Fprintf(w, "  unknown format, parsed with the generic parser\n")
	}
	for _, row := range res.Rows {
		warning.Fprintf(w, "  row %d: %s\n", row.Row, row.Reason)
	}
}

// commitImport commits the import log when git auto-commit is enabled.
func commitImport(ctx context.Context, a *app, results []*ingest.Result) error {
	if !a.cfg.Git.AutoCommit || !gitops.IsRepo(a.root) {
		return nil
	}
	created := 0
	files := make([]string, 0, len(results))
	for _, res := range results {
		created += res.Created
		files = append(files, res.File)
	}
	msg := fmt.Sprintf("import: %s (+%d)", strings.Join(files, ", "), created)
	author := gitops.Author{Name: a.cfg.Git.AuthorName, Email: a.cfg.Git.AuthorEmail}
	hash, err := gitops.CommitPaths(ctx, a.root, msg, author, importlog.RelPath)
	if err != nil {
		return err
	}
	if hash != "" {
		logging.FromContext(ctx).Info().Str("commit", hash).Msg("committed import log")
	}
	return nil
}

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>...",
		Short: "Show which statement format each file is detected as",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := importer.NewDetector()
			for _, path := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, d.DetectFile(path))
			}
			return nil
		},
	}
}
