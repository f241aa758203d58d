package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/httpreqs/internal/database"
	"github.com/nao1215/httpreqs/internal/model"
	"github.com/nao1215/httpreqs/internal/validate"
)

// Job carries one report file through a pipeline.
type Job struct {
	// Path is the report file.
	Path string

	// Report is set by the parse step.
	Report *model.Report

	// Validation is set by the validate step.
	Validation *validate.Result

	// Saved is set by the store step.
	Saved *database.SaveResult

	// Err is the error of the step that failed, if any.
	Err error

	// Performed lists the names of the steps that ran without error.
	Performed []string
}

// NewJob creates a Job for the report file at path.
func NewJob(path string) *Job {
	return &Job{Path: path}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the job as left by the
// previous steps.
type Step interface {
	// Do executes the step. A returned error stops the pipeline.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline running steps in order.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{steps: steps}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs all steps in sequence and stops at the first error, which
// is also recorded in job.Err. Cancellation is checked before each step.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"path", job.Path,
				"reason", err,
			)
			job.Err = err
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"path", job.Path,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"path", job.Path,
				"error", err,
			)
			job.Err = err
			return err
		}

		job.Performed = append(job.Performed, step.Name())
	}

	return nil
}
