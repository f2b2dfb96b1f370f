// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"synthator-core/batch"
	"synthator/internal/scorer"
	"synthator/internal/transform"
)

// Scorer is the remote capability consumed per batch.
type Scorer interface {
	ScoreBatch(ctx context.Context, b batch.Batch) (*scorer.Result, error)
}

// BatchWriter persists a batch's tidy rows and answers resume probes.
type BatchWriter interface {
	Exists(id int) (bool, error)
	Write(id int, rows []transform.Row) (string, error)
}

// Config controls one driver run.
type Config struct {
	Resume   bool // skip batches whose output already exists
	TestMode bool // stop after two processed batches
}

// Summary is the outcome of a run. Failed > 0 must surface in the process
// exit status even though the run itself continues past failed batches.
type Summary struct {
	Batches int // scored, transformed, and written
	Rows    int
	Skipped int // resume hits
	Failed  int
}

const testModeBatches = 2

// Run drives generator -> scorer -> transformer -> writer, one batch fully
// finished before the next is pulled, so memory stays bounded by a single
// batch. A scoring, transform, or write failure marks that batch failed and
// the run moves on; generator errors are fatal because every later batch id
// would shift. Resume skips do not count toward the test-mode stop, so a
// resumed test run still makes progress past already-written batches.
// Cancellation is honored between batches.
func Run(ctx context.Context, cfg Config, gen *batch.Generator, sc Scorer, w BatchWriter, log *zap.Logger) (Summary, error) {
	var sum Summary
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		b, ok, err := gen.Next()
		if err != nil {
			return sum, errors.Wrap(err, "batch generation")
		}
		if !ok {
			return sum, nil
		}

		skipped, cancelled := processOne(ctx, cfg, b, sc, w, log, &sum)
		if cancelled {
			return sum, ctx.Err()
		}
		if skipped {
			continue
		}
		processed++
		if cfg.TestMode && processed >= testModeBatches {
			log.Info("test mode: stopping early", zap.Int("batches", processed))
			return sum, nil
		}
	}
}

// processOne handles a single batch. skipped reports a resume hit;
// cancelled is true only when the context ended mid-batch.
func processOne(ctx context.Context, cfg Config, b batch.Batch, sc Scorer, w BatchWriter, log *zap.Logger, sum *Summary) (skipped, cancelled bool) {
	blog := log.With(zap.Int("batch", b.ID), zap.Int("variants", len(b.Items)))

	if cfg.Resume {
		exists, err := w.Exists(b.ID)
		if err != nil {
			blog.Error("resume probe failed", zap.Error(err))
			sum.Failed++
			return false, false
		}
		if exists {
			blog.Info("skipping batch: output already exists")
			sum.Skipped++
			return true, false
		}
	}

	start := time.Now()
	res, err := sc.ScoreBatch(ctx, b)
	if err != nil {
		if ctx.Err() != nil {
			return false, true
		}
		blog.Error("scoring failed", zap.Error(err))
		sum.Failed++
		return false, false
	}

	rows, err := transform.Batch(res, b)
	if err != nil {
		blog.Error("transform failed", zap.Error(err))
		sum.Failed++
		return false, false
	}

	dest, err := w.Write(b.ID, rows)
	if err != nil {
		blog.Error("write failed", zap.Error(err))
		sum.Failed++
		return false, false
	}

	sum.Batches++
	sum.Rows += len(rows)
	blog.Info("batch written",
		zap.Int("rows", len(rows)),
		zap.String("path", dest),
		zap.Duration("took", time.Since(start)),
	)
	return false, false
}
