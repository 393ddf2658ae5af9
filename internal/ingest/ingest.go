package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/tally/internal/categorize"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/importlog"
	"github.com/cleared-dev/tally/internal/logging"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/source"
	"github.com/cleared-dev/tally/internal/store"
)

// ErrAccountNotOwned is returned when the target account does not exist or
// belongs to someone else.
var ErrAccountNotOwned = errors.New("account not owned by user")

// Request is one upload.
type Request struct {
	Name       string
	Reader     io.Reader
	AccountID  int64
	OwnerID    int64
	FormatHint string // "auto", "" or a format id
}

// Result summarizes one upload.
type Result struct {
	RunID       uuid.UUID
	File        string
	Format      importer.Format
	Detected    bool
	Fallback    bool // unknown hint, generic parser used
	Created     int
	Duplicates  int
	Skipped     int
	Categorized int
	Rows        []importer.RowError
}

// Service is the upload entry point.
type Service struct {
	store    store.Store
	registry *importer.Registry
	gate     *Gate
	logRoot  string
	now      func() time.Time
}

// NewService creates a Service. A nil registry means importer.DefaultRegistry
// and a nil resolver the built-in pattern table.
func NewService(st store.Store, registry *importer.Registry, resolver *categorize.Resolver) *Service {
	if registry == nil {
		registry = importer.DefaultRegistry()
	}
	if resolver == nil {
		resolver = categorize.NewResolver()
	}
	return &Service{store: st, registry: registry, gate: NewGate(resolver), now: time.Now}
}

// WithImportLog makes every successful run append to the import log under root.
func (s *Service) WithImportLog(root string) *Service {
	s.logRoot = root
	return s
}

// Ingest parses the upload and admits its rows in file order. A parse
// failure commits nothing. Rows are committed in one store transaction, so
// a store error rolls the whole file back.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	if err := s.checkOwner(ctx, req.AccountID, req.OwnerID); err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.New(), File: req.Name}
	log := logging.FromContext(ctx).With().
		Str("run_id", res.RunID.String()).
		Str("file", req.Name).
		Int64("account_id", req.AccountID).
		Logger()
	ctx = logging.WithContext(ctx, log)

	table, err := source.Read(req.Name, req.Reader)
	if err != nil {
		hint := importer.Format(req.FormatHint)
		if hint == "" {
			hint = importer.FormatAuto
		}
		return nil, &importer.ParseFailure{Format: hint, Reason: "unreadable file", Err: err}
	}

	resolved := s.registry.Resolve(req.FormatHint, table.Head)
	parser := resolved.Parser
	res.Format = parser.Format()
	res.Detected = resolved.Detected
	res.Fallback = resolved.Unknown
	if resolved.Unknown {
		log.Warn().Str("hint", req.FormatHint).Msg("unknown format, using generic parser")
	}

	batch, err := parser.Parse(table)
	if err != nil {
		return nil, err
	}
	res.Rows = batch.Skipped
	res.Skipped = len(batch.Skipped)
	for _, rowErr := range batch.Skipped {
		log.Debug().Int("row", rowErr.Row).Str("reason", rowErr.Reason).Msg("row skipped")
	}

	err = s.store.InTx(ctx, func(st store.Store) error {
		for _, c := range batch.Candidates {
			txn, created, err := s.gate.Admit(ctx, st, req.OwnerID, c.Normalized(req.AccountID))
			if err != nil {
				return fmt.Errorf("row %d: %w", c.Row, err)
			}
			if !created {
				res.Duplicates++
				continue
			}
			res.Created++
			if txn.Categorized() {
				res.Categorized++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("committing %s: %w", req.Name, err)
	}

	log.Info().
		Str("format", string(res.Format)).
		Int("created", res.Created).
		Int("duplicates", res.Duplicates).
		Int("skipped", res.Skipped).
		Int("categorized", res.Categorized).
		Msg("import finished")

	if s.logRoot != "" {
		err := importlog.Append(s.logRoot, importlog.Entry{
			Timestamp:  s.now(),
			RunID:      res.RunID,
			File:       res.File,
			Format:     string(res.Format),
			AccountID:  req.AccountID,
			Created:    res.Created,
			Duplicates: res.Duplicates,
			Skipped:    res.Skipped,
		})
		if err != nil {
			return res, fmt.Errorf("writing import log: %w", err)
		}
	}
	return res, nil
}

// IngestFile opens path and ingests it.
func (s *Service) IngestFile(ctx context.Context, path string, accountID, ownerID int64, hint string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return s.Ingest(ctx, Request{
		Name:       filepath.Base(path),
		Reader:     f,
		AccountID:  accountID,
		OwnerID:    ownerID,
		FormatHint: hint,
	})
}

// IngestInbox ingests every statement in <root>/import/ and moves each one
// that succeeded to import/processed/. It stops at the first failure; the
// failing file stays in the inbox.
func (s *Service) IngestInbox(ctx context.Context, root string, accountID, ownerID int64, hint string) ([]*Result, error) {
	files, err := importer.Scan(root)
	if err != nil {
		return nil, err
	}
	var results []*Result
	for _, f := range files {
		res, err := s.IngestFile(ctx, f.Path, accountID, ownerID, hint)
		if err != nil {
			return results, fmt.Errorf("%s: %w", f.Name, err)
		}
		results = append(results, res)
		if err := importer.MarkProcessed(root, f.Name); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (s *Service) checkOwner(ctx context.Context, accountID, ownerID int64) error {
	acct, err := s.store.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("account %d: %w", accountID, ErrAccountNotOwned)
	}
	if err != nil {
		return err
	}
	if acct.UserID != ownerID {
		return fmt.Errorf("account %d: %w", accountID, ErrAccountNotOwned)
	}
	return nil
}

func logCategorized(ctx context.Context, txn *model.Transaction, src categorize.Source) {
	logging.FromContext(ctx).Debug().
		Str("description", txn.Description).
		Int64("category_id", *txn.CategoryID).
		Str("source", string(src)).
		Msg("categorized")
}
