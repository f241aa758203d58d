package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/httpreqs/internal/database"
	"github.com/nao1215/httpreqs/internal/model"
	"github.com/nao1215/httpreqs/internal/reader"
	"github.com/nao1215/httpreqs/internal/validate"
)

// ParseStep reads the job's file into job.Report.
// Cancellation is checked between documents.
type ParseStep struct {
	logger *slog.Logger
}

// NewParseStep creates a ParseStep. A nil logger means slog.Default().
func NewParseStep(logger *slog.Logger) *ParseStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStep{logger: logger}
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do parses the file.
func (s *ParseStep) Do(ctx context.Context, job *Job) error {
	stream, err := reader.Open(job.Path, reader.WithLogger(s.logger))
	if err != nil {
		return err
	}
	defer stream.Close()

	header, err := stream.Header()
	if err != nil {
		return err
	}
	report := &model.Report{Header: header}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		report.Entries = append(report.Entries, entry)
	}

	s.logger.Debug("parsed report",
		"path", job.Path,
		"report_id", report.ID(),
		"entries", len(report.Entries),
	)
	job.Report = report
	return nil
}

// ValidateStep validates job.Report into job.Validation.
// With strict set, a report with violations fails the job; otherwise the
// violations are only logged and the report continues to the next step.
type ValidateStep struct {
	strict bool
	logger *slog.Logger
}

// NewValidateStep creates a ValidateStep. A nil logger means slog.Default().
func NewValidateStep(strict bool, logger *slog.Logger) *ValidateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidateStep{strict: strict, logger: logger}
}

// Name returns the step name.
func (s *ValidateStep) Name() string {
	return "validate"
}

// Do validates the parsed report.
func (s *ValidateStep) Do(_ context.Context, job *Job) error {
	if job.Report == nil {
		return errors.New("no report to validate")
	}
	job.Validation = validate.Report(job.Report)
	if job.Validation.OK() {
		return nil
	}

	s.logger.Warn("report has violations",
		"path", job.Path,
		"report_id", job.Report.ID(),
		"violations", len(job.Validation.Violations),
	)
	if s.strict {
		return job.Validation.Err()
	}
	return nil
}

// ReportSaver stores parsed reports. *database.ReportStore implements it.
type ReportSaver interface {
	SaveReport(ctx context.Context, report *model.Report, source, batchID string) (*database.SaveResult, error)
}

// StoreStep saves job.Report under one import batch id.
type StoreStep struct {
	store   ReportSaver
	batchID string
	logger  *slog.Logger
}

// NewStoreStep creates a StoreStep. A nil logger means slog.Default().
func NewStoreStep(store ReportSaver, batchID string, logger *slog.Logger) *StoreStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreStep{store: store, batchID: batchID, logger: logger}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves the parsed report.
func (s *StoreStep) Do(ctx context.Context, job *Job) error {
	if job.Report == nil {
		return errors.New("no report to store")
	}
	saved, err := s.store.SaveReport(ctx, job.Report, job.Path, s.batchID)
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", job.Path, err)
	}
	job.Saved = saved

	if !saved.Inserted {
		s.logger.Info("report already stored",
			"path", job.Path,
			"report_id", job.Report.ID(),
		)
	}
	return nil
}

// ImportSteps returns the steps of an import: parse, then validate when
// requested, then store.
func ImportSteps(store ReportSaver, batchID string, validateReports, strict bool, logger *slog.Logger) []Step {
	steps := []Step{NewParseStep(logger)}
	if validateReports {
		steps = append(steps, NewValidateStep(strict, logger))
	}
	return append(steps, NewStoreStep(store, batchID, logger))
}
