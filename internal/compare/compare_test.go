package compare

import (
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/httpreqs/internal/model"
)

func ptr[T any](v T) *T {
	return &v
}

func entry(url, failure string, start float64) *model.Entry {
	ts := model.NewTimestamp(start)
	e := &model.Entry{InputURL: ptr(url), TestStartTime: &ts, TestRuntime: ptr(start / 1e9)}
	if failure != "" {
		e.ExperimentFailure = ptr(failure)
	}
	return e
}

// TestReports tests report-level comparison.
func TestReports(t *testing.T) {
	t.Parallel()

	base := &model.Report{
		Header: &model.Header{ReportID: ptr("base")},
		Entries: []*model.Entry{
			entry("http://a.example", "", 1),
			entry("http://b.example", "dns_lookup_error", 2),
			entry("http://c.example", "", 3),
		},
	}
	target := &model.Report{
		Header: &model.Header{ReportID: ptr("target")},
		Entries: []*model.Entry{
			entry("http://a.example", "", 100),
			entry("http://b.example", "", 200),
			entry("http://d.example", "", 300),
		},
	}

	r, err := Reports(base, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("carries report ids", func(t *testing.T) {
		t.Parallel()
		if r.BaseID != "base" || r.TargetID != "target" {
			t.Errorf("got %q %q", r.BaseID, r.TargetID)
		}
	})

	t.Run("ignores volatile fields", func(t *testing.T) {
		t.Parallel()
		if r.Unchanged != 1 {
			t.Errorf("expected 1 unchanged entry, got %d", r.Unchanged)
		}
	})

	t.Run("reports changed entries with a diff", func(t *testing.T) {
		t.Parallel()
		if len(r.Changed) != 1 {
			t.Fatalf("expected 1 changed entry, got %v", r.Changed)
		}
		c := r.Changed[0]
		if c.URL != "http://b.example" || c.Occurrence != 1 {
			t.Errorf("got %+v", c)
		}
		if !strings.Contains(c.Diff, "experiment_failure") {
			t.Errorf("expected diff to mention experiment_failure, got %q", c.Diff)
		}
	})

	t.Run("reports added and removed urls", func(t *testing.T) {
		t.Parallel()
		if !reflect.DeepEqual(r.Added, []string{"http://d.example"}) {
			t.Errorf("got added %v", r.Added)
		}
		if !reflect.DeepEqual(r.Removed, []string{"http://c.example"}) {
			t.Errorf("got removed %v", r.Removed)
		}
		if !r.HasChanges() {
			t.Error("expected HasChanges")
		}
	})
}

// TestReportsRepeatedURLs tests occurrence matching.
func TestReportsRepeatedURLs(t *testing.T) {
	t.Parallel()

	base := &model.Report{Entries: []*model.Entry{
		entry("http://a.example", "", 1),
		entry("http://a.example", "", 2),
	}}
	target := &model.Report{Entries: []*model.Entry{
		entry("http://a.example", "", 3),
	}}

	r, err := Reports(base, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Unchanged != 1 {
		t.Errorf("expected 1 unchanged, got %d", r.Unchanged)
	}
	if !reflect.DeepEqual(r.Removed, []string{"http://a.example"}) {
		t.Errorf("got removed %v", r.Removed)
	}
}

// TestReportsIdentical tests that identical reports have no changes.
func TestReportsIdentical(t *testing.T) {
	t.Parallel()

	headers := model.NewHeaders()
	headers.Add("Server", "nginx")
	e := entry("http://a.example", "", 1)
	e.Requests = []model.RequestResponse{{Response: &model.Response{Code: ptr("200"), Headers: headers}}}

	report := &model.Report{Entries: []*model.Entry{e}}
	r, err := Reports(report, report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.HasChanges() {
		t.Errorf("expected no changes, got %+v", r)
	}
}

// TestEntriesDoesNotMutate tests that volatile fields survive comparison.
func TestEntriesDoesNotMutate(t *testing.T) {
	t.Parallel()

	a := entry("http://a.example", "", 1)
	b := entry("http://a.example", "", 2)
	if _, err := Entries(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.TestStartTime == nil || a.TestRuntime == nil {
		t.Error("entry was modified")
	}
}

// TestEntriesHeadersDiffOrder tests that headers_diff is compared as a set.
func TestEntriesHeadersDiffOrder(t *testing.T) {
	t.Parallel()

	a := entry("http://a.example", "", 1)
	a.HeadersDiff = []string{"Server", "Date", "Via"}
	b := entry("http://a.example", "", 2)
	b.HeadersDiff = []string{"Via", "Server", "Date"}

	diff, err := Entries(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != "" {
		t.Errorf("expected no diff for reordered headers_diff, got %q", diff)
	}
	if a.HeadersDiff[0] != "Server" || b.HeadersDiff[0] != "Via" {
		t.Errorf("entries were reordered: %v, %v", a.HeadersDiff, b.HeadersDiff)
	}

	b.HeadersDiff = []string{"Via", "Server"}
	diff, err = Entries(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(diff, "Date") {
		t.Errorf("expected removed header in diff, got %q", diff)
	}
}
