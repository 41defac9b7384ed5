// Package ingest loads normalized word-list records into the store in
// fixed-size batches.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/japaniel/vocabimport/pkg/db"
	"github.com/japaniel/vocabimport/pkg/dictionary"
	"github.com/japaniel/vocabimport/pkg/metrics"
	"github.com/japaniel/vocabimport/pkg/report"
	"github.com/japaniel/vocabimport/pkg/wordlist"
)

// ErrNoRecords is returned when a file yields no loadable record.
var ErrNoRecords = errors.New("no records to import")

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	SubmitCtx(ctx context.Context, task Task) error
	Close()
}

// Job describes one file to import.
type Job struct {
	Path    string
	Profile dictionary.Profile
	// SourceTag names the registry source of per-source profiles.
	SourceTag string
	// BatchSize overrides the profile's batch size when positive.
	BatchSize int
}

// Importer runs the read, normalize, batch, load and report stages for
// one file at a time.
type Importer struct {
	Store    db.Store
	Sources  *dictionary.SourceResolver
	Logger   *zap.Logger
	Out      io.Writer
	Workers  int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewImporter creates an Importer that loads sequentially.
func NewImporter(store db.Store, out io.Writer, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		Store:   store,
		Sources: dictionary.NewSourceResolver(store, dictionary.DefaultSourcePriority),
		Logger:  logger,
		Out:     out,
		Workers: 1,
	}
}

// Import runs job. The returned run is non-nil whenever loading started,
// including when ctx was cancelled part way.
func (im *Importer) Import(ctx context.Context, job Job) (*report.Run, error) {
	profile := job.Profile
	size := job.BatchSize
	if size <= 0 {
		size = profile.BatchSize
	}
	log := im.Logger.With(zap.String("file", job.Path), zap.String("profile", profile.Name))

	r, err := wordlist.Open(job.Path, wordlist.Options{Header: profile.Header})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var source db.Source
	if profile.PerSource {
		tag := job.SourceTag
		if tag == "" {
			tag = profile.Name
		}
		source, err = im.Sources.Resolve(ctx, tag)
		metrics.RecordSourceResolution(err)
		if err != nil {
			return nil, fmt.Errorf("resolve source %s: %w", tag, err)
		}
		log.Debug("resolved source", zap.String("source", source.Name), zap.String("source_id", db.UUIDString(source.ID)))
	}

	records, dropped, err := normalizeAll(r, dictionary.NewNormalizer(profile, r.Header(), source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", job.Path, ErrNoRecords)
	}
	batches, err := Partition(records, size)
	if err != nil {
		return nil, err
	}

	rep := report.New(im.Out, log, &report.Run{
		Profile:   profile.Name,
		Table:     profile.Table,
		SourceTag: source.Name,
		File:      r.Fingerprint(),
	})
	rep.Parsed(len(records), r.Skipped()+dropped, len(batches))

	loader := &Loader{
		Store:            im.Store,
		Table:            profile.Table,
		IgnoreDuplicates: profile.IgnoreDuplicates,
		Logger:           log,
	}
	var loadErr error
	if im.Workers > 1 && len(batches) > 1 {
		loadErr = im.loadConcurrent(ctx, loader, batches, rep)
	} else {
		loadErr = im.loadSequential(ctx, loader, batches, rep)
	}
	if loadErr != nil {
		return rep.Finish(), loadErr
	}

	// verification is informational; a failed count does not fail the run
	_ = rep.Verify(ctx, im.Store)
	return rep.Finish(), nil
}

func normalizeAll(r *wordlist.Reader, n *dictionary.Normalizer) ([]db.Record, int, error) {
	var (
		out     []db.Record
		dropped int
	)
	for {
		row, err := r.Next()
		if err == io.EOF {
			return out, dropped, nil
		}
		if err != nil {
			return nil, dropped, err
		}
		rec, ok := n.Normalize(row)
		if !ok {
			dropped++
			continue
		}
		out = append(out, rec)
	}
}

func (im *Importer) loadSequential(ctx context.Context, l *Loader, batches []Batch, rep *report.Reporter) error {
	for _, b := range batches {
		res := l.Submit(ctx, b)
		record(rep, res)
		if res.Status == BatchFatal {
			return res.Err
		}
	}
	return nil
}

// loadConcurrent loads batches on a worker pool. Each job finishes its own
// fallback before publishing, and results are reported in batch order as
// soon as every earlier batch has been reported.
func (im *Importer) loadConcurrent(ctx context.Context, l *Loader, batches []Batch, rep *report.Reporter) error {
	var pool WorkerPoolInterface
	if im.PoolFactory != nil {
		pool = im.PoolFactory(im.Workers, im.Workers*2)
	} else {
		pool = NewWorkerPool(im.Workers, im.Workers*2)
	}
	results := make(chan BatchResult, len(batches))
	reported := make(chan reportOutcome, 1)
	go func() { reported <- reportInOrder(rep, results) }()

	pool.Start(ctx)
	var submitErr error
	for _, b := range batches {
		b := b
		err := pool.SubmitCtx(ctx, func(ctx context.Context) error {
			results <- l.Submit(ctx, b)
			return nil
		})
		if err != nil {
			submitErr = err
			break
		}
	}
	pool.Close()
	close(results)
	out := <-reported

	if out.fatal != nil {
		return out.fatal
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if submitErr != nil {
		return fmt.Errorf("submit batch: %w", submitErr)
	}
	if out.count != len(batches) {
		return fmt.Errorf("loaded %d of %d batches", out.count, len(batches))
	}
	return nil
}

type reportOutcome struct {
	count int
	fatal error
}

// reportInOrder forwards results to rep in index order. Results left
// behind a gap (a batch that never ran) are flushed in order at the end.
func reportInOrder(rep *report.Reporter, results <-chan BatchResult) reportOutcome {
	var out reportOutcome
	pending := make(map[int]BatchResult)
	next := 0
	emit := func(res BatchResult) {
		record(rep, res)
		out.count++
		if res.Status == BatchFatal && out.fatal == nil {
			out.fatal = res.Err
		}
	}
	for res := range results {
		pending[res.Index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			emit(r)
			next++
		}
	}
	rest := make([]int, 0, len(pending))
	for i := range pending {
		rest = append(rest, i)
	}
	sort.Ints(rest)
	for _, i := range rest {
		emit(pending[i])
	}
	return out
}

func record(rep *report.Reporter, res BatchResult) {
	var failures []report.Failure
	for _, o := range res.Failures() {
		failures = append(failures, report.Failure{Key: o.Key, Line: o.Line, Err: o.Err})
	}
	rep.Batch(res.Index, res.Size, res.Accepted, res.Status.String(), failures, res.Duration)
}
