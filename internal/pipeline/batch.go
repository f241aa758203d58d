package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of files processed at once when no
// WithConcurrency option is given.
const DefaultConcurrency = 10

// BatchProcessor handles concurrent processing of multiple report files.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each file.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of files processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of files processed at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// pipelineFactory is called once per file so no state leaks between files.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs one pipeline per path, at most concurrency at a time.
//
// Jobs are returned in the order of paths, including jobs that failed;
// a failure is recorded in Job.Err and never stops the other files. The
// returned error is non-nil only when ctx is cancelled, in which case
// jobs that never started carry the context error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) ([]*Job, error) {
	bp.logger.Info("starting batch processing",
		"total_files", len(paths),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	jobs := make([]*Job, len(paths))
	for i, path := range paths {
		jobs[i] = NewJob(path)
	}

	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			for _, rest := range jobs[i:] {
				rest.Err = err
			}
			break
		}

		g.Go(func() error {
			if err := bp.pipelineFactory().Execute(ctx, job); err != nil {
				bp.logger.Warn("import failed",
					"path", job.Path,
					"error", err,
				)
				return nil
			}

			bp.logger.Info("import completed",
				"path", job.Path,
				"report_id", job.Report.ID(),
			)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines record errors on their job

	bp.logger.Info("batch processing complete",
		"total_files", len(paths),
		"elapsed", time.Since(startTime),
	)

	return jobs, ctx.Err()
}

// Failed returns the jobs that ended with an error.
func Failed(jobs []*Job) []*Job {
	var failed []*Job
	for _, job := range jobs {
		if job.Err != nil {
			failed = append(failed, job)
		}
	}
	return failed
}
