package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/vocabimport/pkg/db"
)

// BatchStatus is the outcome class of one batch submission.
type BatchStatus int

const (
	// BatchOK means the whole batch was accepted in one upsert.
	BatchOK BatchStatus = iota
	// BatchPartial means the batch upsert failed and records were loaded
	// one at a time; Outcomes holds each record's result.
	BatchPartial
	// BatchFatal means the run was cancelled while the batch was loading.
	BatchFatal
)

func (s BatchStatus) String() string {
	switch s {
	case BatchOK:
		return "ok"
	case BatchPartial:
		return "partial"
	case BatchFatal:
		return "fatal"
	}
	return "unknown"
}

// RecordOutcome is the single-record fallback result of one record.
type RecordOutcome struct {
	Key  string
	Line int
	Err  error
}

// BatchResult is what the loader reports for one batch.
type BatchResult struct {
	Index    int
	Size     int
	Status   BatchStatus
	Accepted int
	Outcomes []RecordOutcome
	// Err is the batch-level error that triggered the fallback, or the
	// cancellation cause for BatchFatal.
	Err      error
	Duration time.Duration
}

// Failures returns the outcomes whose record was rejected.
func (r BatchResult) Failures() []RecordOutcome {
	var out []RecordOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Loader upserts batches into one table, degrading to one upsert per
// record when a batch is rejected.
type Loader struct {
	Store            db.Store
	Table            db.Table
	IgnoreDuplicates bool
	Logger           *zap.Logger
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// Submit loads b. A rejected record never fails the batch; only
// cancellation of ctx does.
func (l *Loader) Submit(ctx context.Context, b Batch) (res BatchResult) {
	start := time.Now()
	res = BatchResult{Index: b.Index, Size: len(b.Records)}
	defer func() { res.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		res.Status, res.Err = BatchFatal, err
		return res
	}

	n, err := l.Store.Upsert(ctx, l.Table, b.Records, l.IgnoreDuplicates)
	if err == nil {
		res.Status, res.Accepted = BatchOK, n
		return res
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.Status, res.Err = BatchFatal, ctxErr
		return res
	}

	log := l.logger()
	log.Warn("batch upsert failed, retrying records one by one",
		zap.String("table", l.Table.Name),
		zap.Int("batch", b.Index+1),
		zap.Int("records", len(b.Records)),
		zap.Error(err),
	)
	res.Status, res.Err = BatchPartial, err
	res.Outcomes = make([]RecordOutcome, 0, len(b.Records))
	for _, r := range b.Records {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Status, res.Err = BatchFatal, ctxErr
			return res
		}
		_, rerr := l.Store.Upsert(ctx, l.Table, []db.Record{r}, l.IgnoreDuplicates)
		if rerr != nil && ctx.Err() != nil {
			res.Status, res.Err = BatchFatal, ctx.Err()
			return res
		}
		out := RecordOutcome{Key: r.Key(l.Table), Line: r.Line, Err: rerr}
		res.Outcomes = append(res.Outcomes, out)
		if rerr != nil {
			log.Warn("record rejected",
				zap.String("table", l.Table.Name),
				zap.String("key", out.Key),
				zap.Int("line", out.Line),
				zap.Error(rerr),
			)
			continue
		}
		res.Accepted++
	}
	return res
}
