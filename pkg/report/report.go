// Package report tracks the outcome of an import run and prints it.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/japaniel/vocabimport/pkg/db"
	"github.com/japaniel/vocabimport/pkg/metrics"
	"github.com/japaniel/vocabimport/pkg/wordlist"
)

// Run is the state of one import of one file.
type Run struct {
	ID        uuid.UUID
	Profile   string
	Table     db.Table
	SourceTag string
	File      wordlist.Fingerprint

	Records  int
	Batches  int
	Accepted int
	Failed   int
	Skipped  int

	// Remote is the table's row count read back after loading. It is an
	// independent check, not derived from Accepted.
	Remote   int64
	Verified bool

	Started  time.Time
	Duration time.Duration
}

// Failure attributes one rejected record to its natural key.
type Failure struct {
	Key  string
	Line int
	Err  error
}

// Counter is the part of the store the verification step needs.
type Counter interface {
	Count(ctx context.Context, t db.Table) (int64, error)
}

// Reporter accumulates counts and writes human-readable progress to out.
type Reporter struct {
	out       io.Writer
	log       *zap.Logger
	run       *Run
	processed int
}

// New starts a run report.
func New(out io.Writer, log *zap.Logger, run *Run) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	return &Reporter{out: out, log: log, run: run}
}

// Run returns the report state.
func (r *Reporter) Run() *Run { return r.run }

// Parsed records the outcome of reading and normalizing the file.
func (r *Reporter) Parsed(records, skipped, batches int) {
	r.run.Records = records
	r.run.Batches = batches
	r.Skip(skipped)
	fmt.Fprintf(r.out, "Parsed %d records from %s (%d skipped), %d batches\n",
		records, r.run.File.Path, skipped, batches)
	r.log.Info("parsed word list",
		zap.String("run_id", r.run.ID.String()),
		zap.String("file", r.run.File.Path),
		zap.Int("records", records),
		zap.Int("skipped", skipped),
		zap.Int("batches", batches),
	)
}

// Skip counts rows dropped before loading.
func (r *Reporter) Skip(n int) {
	r.run.Skipped += n
	metrics.RecordRecords(r.run.Table.Name, "skipped", n)
}

// Batch records the outcome of batch index (0-based) of size records.
func (r *Reporter) Batch(index, size, accepted int, status string, failures []Failure, d time.Duration) {
	r.processed += size
	r.run.Accepted += accepted
	r.run.Failed += len(failures)
	metrics.RecordRecords(r.run.Table.Name, "accepted", accepted)
	metrics.RecordRecords(r.run.Table.Name, "failed", len(failures))
	metrics.RecordBatch(r.run.Table.Name, status, d)

	for _, f := range failures {
		fmt.Fprintf(r.out, "  failed: %s (line %d): %v\n", f.Key, f.Line, f.Err)
	}
	pct := 100.0
	if r.run.Records > 0 {
		pct = float64(r.processed) / float64(r.run.Records) * 100
	}
	fmt.Fprintf(r.out, "batch %d/%d - processed %d/%d (%.1f%%) - accepted %d, failed %d\n",
		index+1, r.run.Batches, r.processed, r.run.Records, pct, r.run.Accepted, r.run.Failed)
}

// Verify reads the table's row count back from the store.
func (r *Reporter) Verify(ctx context.Context, c Counter) error {
	n, err := c.Count(ctx, r.run.Table)
	if err != nil {
		r.log.Warn("verification count failed", zap.String("table", r.run.Table.Name), zap.Error(err))
		return err
	}
	r.run.Remote = n
	r.run.Verified = true
	return nil
}

// Finish stamps the duration and prints the summary.
func (r *Reporter) Finish() *Run {
	r.run.Duration = time.Since(r.run.Started)
	fmt.Fprintf(r.out, "Import finished in %s: accepted %d, failed %d, skipped %d\n",
		r.run.Duration.Round(time.Millisecond), r.run.Accepted, r.run.Failed, r.run.Skipped)
	if r.run.File.Bytes > 0 {
		fmt.Fprintf(r.out, "Source file: %s\n", r.run.File)
	}
	if r.run.Verified {
		fmt.Fprintf(r.out, "Rows now in %s: %d\n", r.run.Table.Name, r.run.Remote)
	}
	r.log.Info("import finished",
		zap.String("run_id", r.run.ID.String()),
		zap.String("profile", r.run.Profile),
		zap.String("table", r.run.Table.Name),
		zap.String("source", r.run.SourceTag),
		zap.Int("accepted", r.run.Accepted),
		zap.Int("failed", r.run.Failed),
		zap.Int("skipped", r.run.Skipped),
		zap.Int64("remote_count", r.run.Remote),
		zap.Uint64("file_xxh3", r.run.File.Digest),
		zap.Duration("duration", r.run.Duration),
	)
	return r.run
}
