// internal/app/app.go

// Package app wires the run: logger, index, scorer client, storage, writer,
// and the pipeline driver, mapping outcomes to process exit codes.
package app

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"synthator-core/batch"
	"synthator/internal/index"
	"synthator/internal/pipeline"
	"synthator/internal/scorer"
	"synthator/internal/storage"
	"synthator/internal/writers"
)

// Options is the validated run configuration.
type Options struct {
	VariantIndexPath string
	APIKey           string
	ServerURL        string
	Output           string

	ContextWindow int64
	BatchWindow   int
	Timeout       time.Duration

	TestMode bool
	Resume   bool
	Quiet    bool
}

// Exit codes.
const (
	ExitOK       = 0
	ExitPartial  = 1 // at least one batch failed
	ExitUsage    = 2 // bad flags or index schema
	ExitRuntime  = 3
	ExitCanceled = 130
)

// Run executes one pipeline invocation and returns the exit code.
func Run(ctx context.Context, o Options, stderr io.Writer) int {
	log := newLogger(stderr, o.Quiet)
	defer func() { _ = log.Sync() }()

	store := storage.NewStore("")

	log.Info("loading variant index", zap.String("path", o.VariantIndexPath))
	rd, err := index.Open(store, o.VariantIndexPath)
	if err != nil {
		log.Error("variant index rejected", zap.Error(err))
		var se *index.SchemaError
		if errors.As(err, &se) {
			return ExitUsage
		}
		return ExitRuntime
	}
	defer func() { _ = rd.Close() }()

	gen, err := batch.NewGenerator(rd, o.ContextWindow, o.BatchWindow)
	if err != nil {
		log.Error("bad batching configuration", zap.Error(err))
		return ExitUsage
	}

	sc, err := scorer.New(scorer.Config{
		BaseURL:    o.ServerURL,
		APIKey:     o.APIKey,
		Timeout:    o.Timeout,
		MaxRetries: 2,
	})
	if err != nil {
		log.Error("scorer client", zap.Error(err))
		return ExitUsage
	}

	log.Info("starting run",
		zap.String("output", o.Output),
		zap.Int64("context_window", o.ContextWindow),
		zap.Int("batch_window", o.BatchWindow),
		zap.Bool("resume", o.Resume),
		zap.Bool("test_mode", o.TestMode),
	)

	sum, err := pipeline.Run(ctx,
		pipeline.Config{Resume: o.Resume, TestMode: o.TestMode},
		gen, sc, writers.NewParquetWriter(store, o.Output), log,
	)

	log.Info("run finished",
		zap.Int("batches", sum.Batches),
		zap.Int("rows", sum.Rows),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ExitCanceled
		}
		log.Error("run aborted", zap.Error(err))
		return ExitRuntime
	}
	if sum.Failed > 0 {
		return ExitPartial
	}
	return ExitOK
}

// newLogger builds a console zap logger on stderr. Quiet raises the level
// so only batch failures and fatal conditions surface.
func newLogger(stderr io.Writer, quiet bool) *zap.Logger {
	level := zapcore.InfoLevel
	if quiet {
		level = zapcore.ErrorLevel
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(stderr),
		level,
	)
	return zap.New(core)
}
