package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/japaniel/vocabimport/pkg/config"
	"github.com/japaniel/vocabimport/pkg/db"
	"github.com/japaniel/vocabimport/pkg/db/postgres"
	"github.com/japaniel/vocabimport/pkg/db/rest"
	"github.com/japaniel/vocabimport/pkg/dictionary"
	"github.com/japaniel/vocabimport/pkg/ingest"
	"github.com/japaniel/vocabimport/pkg/logging"
	"github.com/japaniel/vocabimport/pkg/metrics"
	"github.com/japaniel/vocabimport/pkg/metrics/prompush"
)

type cliFlags struct {
	envFile   string
	yes       bool
	batchSize int
	workers   int
}

// app carries what every subcommand shares. It is populated by setup and
// torn down by shutdown.
type app struct {
	flags cliFlags

	in          io.Reader
	out         io.Writer
	stdin       *bufio.Reader
	interactive bool

	cfg         *config.Config
	log         *zap.Logger
	store       db.Store
	importer    *ingest.Importer
	pushMetrics bool
}

func (a *app) setup(ctx context.Context, envRequired bool) error {
	if err := config.LoadEnvFile(a.flags.envFile, envRequired); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.flags.batchSize < 0 {
		return fmt.Errorf("--batch-size must be positive, got %d", a.flags.batchSize)
	}
	if a.flags.batchSize > 0 {
		cfg.Import.BatchSize = a.flags.batchSize
	}
	if a.flags.workers > 0 {
		cfg.Import.Workers = a.flags.workers
	}
	a.cfg = cfg

	log, err := logging.New(logging.Config{Level: cfg.Logging.Level, Encoding: cfg.Logging.Format})
	if err != nil {
		return err
	}
	a.log = log
	log.Debug("configuration loaded", zap.Stringer("config", cfg))

	if cfg.Metrics.PushgatewayURL != "" {
		b, err := prompush.NewBackend(cfg.Metrics.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		a.pushMetrics = true
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	a.store = store

	im := ingest.NewImporter(store, a.out, log)
	im.Sources = dictionary.NewSourceResolver(store, cfg.Import.SourcePriority)
	im.Workers = cfg.Import.Workers
	a.importer = im

	a.interactive = isTerminal(a.in)
	return nil
}

// openStore builds the store client selected by the configuration.
func openStore(ctx context.Context, cfg config.StoreConfig) (db.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendPostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL, int32(cfg.MaxConns))
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := s.Migrate(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	case config.BackendSQLite:
		s, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		c, err := rest.New(cfg.URL, cfg.Key, rest.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (a *app) shutdown() {
	if a.pushMetrics {
		if err := metrics.Flush(); err != nil {
			a.log.Warn("push metrics failed", zap.Error(err))
		}
		metrics.Reset()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close store failed", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// importFile imports one word list with profile after confirmation.
func (a *app) importFile(ctx context.Context, profile dictionary.Profile, arg, tag string) error {
	path, err := a.resolvePath(ctx, profile, arg)
	if err != nil {
		return err
	}
	ok, err := a.confirm(ctx, fmt.Sprintf("Import %s into %s?", path, describe(profile)))
	if err != nil {
		return err
	}
	if !ok {
		return errCancelled
	}
	_, err = a.importer.Import(ctx, ingest.Job{
		Path:      path,
		Profile:   profile,
		SourceTag: tag,
		BatchSize: a.cfg.Import.BatchSize,
	})
	return err
}

// importPlan imports every list of plan under its own source. A list that
// fails is reported and skipped; only an interrupt or a plan where every
// list failed is an error.
func (a *app) importPlan(ctx context.Context, plan *config.Plan) error {
	profile := dictionary.VocabList
	fmt.Fprintln(a.out, "Sources to import:")
	for _, e := range plan.Sources {
		fmt.Fprintf(a.out, "  %s: %s\n", e.Tag, e.Path)
	}
	ok, err := a.confirm(ctx, fmt.Sprintf("Import %d lists into %s?", len(plan.Sources), describe(profile)))
	if err != nil {
		return err
	}
	if !ok {
		return errCancelled
	}

	failed := 0
	for _, e := range plan.Sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "\n== %s ==\n", e.Tag)
		path, err := a.localPath(ctx, e.Path)
		if err == nil {
			_, err = a.importer.Import(ctx, ingest.Job{
				Path:      path,
				Profile:   profile,
				SourceTag: e.Tag,
				BatchSize: a.cfg.Import.BatchSize,
			})
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			failed++
			fmt.Fprintf(a.out, "Skipping %s: %v\n", e.Tag, err)
			logImportError(a.log, e.Tag, e.Path, err)
		}
	}
	if failed == len(plan.Sources) {
		return fmt.Errorf("all %d lists failed to import", failed)
	}
	fmt.Fprintf(a.out, "\nImported %d of %d lists.\n", len(plan.Sources)-failed, len(plan.Sources))
	return nil
}
