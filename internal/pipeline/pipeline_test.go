package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/httpreqs/internal/database"
	"github.com/nao1215/httpreqs/internal/model"
	"github.com/nao1215/httpreqs/internal/validate"
)

const validReport = `---
probe_asn: AS7922
probe_cc: US
probe_ip: 127.0.0.1
report_id: %s
start_time: 1441193001.0
test_name: http_requests
...
---
input: http://freehomepage.com
test_start_time: 1441193047.0
requests:
- request:
    method: GET
    url: http://freehomepage.com
  response:
    code: 200
...
---
input: http://example.com
test_start_time: 1441193048.0
...
`

// invalidReport builds fine but breaks validation rules.
const invalidReport = `---
report_id: bad
probe_cc: USA
...
---
input: not a url
...
`

func writeReport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	return path
}

// mockStep is a Step for testing pipeline execution order and errors.
type mockStep struct {
	name  string
	err   error
	calls *[]string
	mu    *sync.Mutex
}

func (m *mockStep) Name() string { return m.name }

func (m *mockStep) Do(_ context.Context, _ *Job) error {
	m.mu.Lock()
	*m.calls = append(*m.calls, m.name)
	m.mu.Unlock()
	return m.err
}

// fakeSaver records saved reports.
type fakeSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (f *fakeSaver) SaveReport(_ context.Context, report *model.Report, source, batchID string) (*database.SaveResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, report.ID()+"@"+batchID)
	return &database.SaveResult{ID: int64(len(f.saved)), Inserted: true}, nil
}

// TestPipelineExecute tests step ordering and error handling.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	newSteps := func(failAt string) ([]Step, *[]string) {
		calls := &[]string{}
		mu := &sync.Mutex{}
		var steps []Step
		for _, name := range []string{"a", "b", "c"} {
			var err error
			if name == failAt {
				err = errors.New(name + " failed")
			}
			steps = append(steps, &mockStep{name: name, err: err, calls: calls, mu: mu})
		}
		return steps, calls
	}

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		steps, calls := newSteps("")
		p := New(steps)
		job := NewJob("x.yaml")
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(*calls, []string{"a", "b", "c"}) {
			t.Errorf("got calls %v", *calls)
		}
		if !reflect.DeepEqual(job.Performed, []string{"a", "b", "c"}) {
			t.Errorf("got performed %v", job.Performed)
		}
		if !reflect.DeepEqual(p.StepNames(), []string{"a", "b", "c"}) {
			t.Errorf("got step names %v", p.StepNames())
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		steps, calls := newSteps("b")
		job := NewJob("x.yaml")
		err := New(steps).Execute(context.Background(), job)
		if err == nil || job.Err != err {
			t.Fatalf("expected error recorded on job, got %v / %v", err, job.Err)
		}
		if !reflect.DeepEqual(*calls, []string{"a", "b"}) {
			t.Errorf("got calls %v", *calls)
		}
		if !reflect.DeepEqual(job.Performed, []string{"a"}) {
			t.Errorf("got performed %v", job.Performed)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()

		steps, calls := newSteps("")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		job := NewJob("x.yaml")
		err := New(steps).Execute(ctx, job)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(*calls) != 0 {
			t.Errorf("expected no calls, got %v", *calls)
		}
	})
}

// TestParseStep tests reading a report file.
func TestParseStep(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("parses header and entries", func(t *testing.T) {
		t.Parallel()

		job := NewJob(writeReport(t, dir, "ok.yaml", fmt.Sprintf(validReport, "r1")))
		if err := NewParseStep(nil).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.Report.ID() != "r1" {
			t.Errorf("got report id %q", job.Report.ID())
		}
		if len(job.Report.Entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(job.Report.Entries))
		}
		if job.Report.Entries[0].URL() != "http://freehomepage.com" {
			t.Errorf("got url %q", job.Report.Entries[0].URL())
		}
	})

	t.Run("fails for missing file", func(t *testing.T) {
		t.Parallel()

		job := NewJob(filepath.Join(dir, "missing.yaml"))
		if err := NewParseStep(nil).Do(context.Background(), job); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("stops between documents when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		job := NewJob(writeReport(t, dir, "cancel.yaml", fmt.Sprintf(validReport, "r2")))
		err := NewParseStep(nil).Do(ctx, job)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if job.Report != nil {
			t.Error("expected no report")
		}
	})
}

// TestValidateStep tests lenient and strict validation.
func TestValidateStep(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	parsed := func(t *testing.T, name, content string) *Job {
		t.Helper()
		job := NewJob(writeReport(t, dir, name, content))
		if err := NewParseStep(nil).Do(context.Background(), job); err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		return job
	}

	t.Run("valid report passes", func(t *testing.T) {
		t.Parallel()

		job := parsed(t, "valid.yaml", fmt.Sprintf(validReport, "r1"))
		if err := NewValidateStep(true, nil).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !job.Validation.OK() {
			t.Errorf("unexpected violations: %v", job.Validation.Violations)
		}
	})

	t.Run("lenient records violations", func(t *testing.T) {
		t.Parallel()

		job := parsed(t, "lenient.yaml", invalidReport)
		if err := NewValidateStep(false, nil).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.Validation.OK() {
			t.Error("expected violations")
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		t.Parallel()

		job := parsed(t, "strict.yaml", invalidReport)
		err := NewValidateStep(true, nil).Do(context.Background(), job)
		if !errors.Is(err, validate.ErrInvalid) {
			t.Errorf("expected ErrInvalid, got %v", err)
		}
	})

	t.Run("requires a parsed report", func(t *testing.T) {
		t.Parallel()

		if err := NewValidateStep(false, nil).Do(context.Background(), NewJob("x")); err == nil {
			t.Error("expected error")
		}
	})
}

// TestStoreStep tests saving through a ReportSaver.
func TestStoreStep(t *testing.T) {
	t.Parallel()

	t.Run("saves with batch id", func(t *testing.T) {
		t.Parallel()

		saver := &fakeSaver{}
		job := NewJob("x.yaml")
		job.Report = &model.Report{Header: &model.Header{ReportID: new(string)}}
		*job.Report.Header.ReportID = "r1"

		if err := NewStoreStep(saver, "batch-1", nil).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(saver.saved, []string{"r1@batch-1"}) {
			t.Errorf("got saved %v", saver.saved)
		}
		if job.Saved == nil || !job.Saved.Inserted {
			t.Errorf("got saved result %+v", job.Saved)
		}
	})

	t.Run("wraps store errors", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		job := NewJob("x.yaml")
		job.Report = &model.Report{Header: &model.Header{}}
		err := NewStoreStep(&fakeSaver{err: errBoom}, "b", nil).Do(context.Background(), job)
		if !errors.Is(err, errBoom) {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}

// TestImportSteps tests step composition.
func TestImportSteps(t *testing.T) {
	t.Parallel()

	names := func(steps []Step) []string {
		return New(steps).StepNames()
	}
	if got := names(ImportSteps(&fakeSaver{}, "b", false, false, nil)); !reflect.DeepEqual(got, []string{"parse", "store"}) {
		t.Errorf("got %v", got)
	}
	if got := names(ImportSteps(&fakeSaver{}, "b", true, false, nil)); !reflect.DeepEqual(got, []string{"parse", "validate", "store"}) {
		t.Errorf("got %v", got)
	}
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline { return New(nil) }

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory)
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(factory, WithConcurrency(5)); bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(factory, WithConcurrency(0)); bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", bp.concurrency)
		}
	})

	t.Run("WithBatchLogger(nil) falls back to default", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(factory, WithBatchLogger(nil)); bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestBatchProcessorProcessBatch tests concurrent imports.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("imports every file in order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		paths := []string{
			writeReport(t, dir, "a.yaml", fmt.Sprintf(validReport, "ra")),
			filepath.Join(dir, "missing.yaml"),
			writeReport(t, dir, "b.yaml", fmt.Sprintf(validReport, "rb")),
		}

		saver := &fakeSaver{}
		bp := NewBatchProcessor(func() *Pipeline {
			return New(ImportSteps(saver, "batch", false, false, nil))
		}, WithConcurrency(2))

		jobs, err := bp.ProcessBatch(context.Background(), paths)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(jobs) != 3 {
			t.Fatalf("expected 3 jobs, got %d", len(jobs))
		}
		for i, job := range jobs {
			if job.Path != paths[i] {
				t.Errorf("job %d has path %q", i, job.Path)
			}
		}
		if jobs[0].Report.ID() != "ra" || jobs[2].Report.ID() != "rb" {
			t.Errorf("unexpected reports: %q %q", jobs[0].Report.ID(), jobs[2].Report.ID())
		}

		failed := Failed(jobs)
		if len(failed) != 1 || failed[0] != jobs[1] {
			t.Errorf("expected only the missing file to fail, got %v", failed)
		}
		if len(saver.saved) != 2 {
			t.Errorf("expected 2 saved reports, got %v", saver.saved)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak int32
		step := stepFunc(func(context.Context, *Job) error {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		})

		bp := NewBatchProcessor(func() *Pipeline { return New([]Step{step}) }, WithConcurrency(2))
		paths := make([]string, 8)
		for i := range paths {
			paths[i] = fmt.Sprintf("file%d.yaml", i)
		}
		if _, err := bp.ProcessBatch(context.Background(), paths); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak > 2 {
			t.Errorf("expected at most 2 concurrent jobs, got %d", peak)
		}
	})

	t.Run("cancelled context marks every job", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func() *Pipeline { return New([]Step{stepFunc(nil)}) })
		jobs, err := bp.ProcessBatch(ctx, []string{"a", "b"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for _, job := range jobs {
			if !errors.Is(job.Err, context.Canceled) {
				t.Errorf("job %s: expected context.Canceled, got %v", job.Path, job.Err)
			}
		}
	})
}

// stepFunc adapts a function to the Step interface.
type stepFunc func(context.Context, *Job) error

func (f stepFunc) Name() string { return "func" }

func (f stepFunc) Do(ctx context.Context, job *Job) error {
	if f == nil {
		return nil
	}
	return f(ctx, job)
}
