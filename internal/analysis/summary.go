// Package analysis derives aggregate figures from a parsed report.
package analysis

import (
	"cmp"
	"maps"
	"slices"

	"github.com/nao1215/httpreqs/internal/model"
)

// Summary aggregates the entries of one report.
type Summary struct {
	ReportID string `json:"report_id"`
	TestName string `json:"test_name"`

	// Entries is the number of entry documents.
	Entries int `json:"entries"`

	// UniqueURLs is the number of distinct input URLs.
	UniqueURLs int `json:"unique_urls"`

	// Failed counts entries where either side failed.
	Failed int `json:"failed"`

	// ControlFailures and ExperimentFailures count failure reasons.
	ControlFailures    map[string]int `json:"control_failures"`
	ExperimentFailures map[string]int `json:"experiment_failures"`

	// BodyLength and Headers tally the comparison outcomes. Entries with a
	// null outcome are counted as Unknown.
	BodyLength Tally `json:"body_length"`
	Headers    Tally `json:"headers"`

	// Requests is the total number of request/response pairs.
	Requests int `json:"requests"`
}

// Tally counts a nullable boolean outcome.
type Tally struct {
	Match    int `json:"match"`
	Mismatch int `json:"mismatch"`
	Unknown  int `json:"unknown"`
}

func (t *Tally) add(v *bool) {
	switch {
	case v == nil:
		t.Unknown++
	case *v:
		t.Match++
	default:
		t.Mismatch++
	}
}

// Count pairs a failure reason with its number of occurrences.
type Count struct {
	Reason string
	N      int
}

// Summarize computes a Summary for report.
func Summarize(report *model.Report) *Summary {
	s := &Summary{
		ReportID:           report.ID(),
		ControlFailures:    make(map[string]int),
		ExperimentFailures: make(map[string]int),
	}
	if report.Header != nil && report.Header.TestName != nil {
		s.TestName = *report.Header.TestName
	}

	urls := make(map[string]struct{})
	for _, e := range report.Entries {
		s.Entries++
		if u := e.URL(); u != "" {
			urls[u] = struct{}{}
		}
		if e.Failed() {
			s.Failed++
		}
		if e.ControlFailure != nil {
			s.ControlFailures[*e.ControlFailure]++
		}
		if e.ExperimentFailure != nil {
			s.ExperimentFailures[*e.ExperimentFailure]++
		}
		s.BodyLength.add(e.BodyLengthMatch)
		s.Headers.add(e.HeadersMatch)
		s.Requests += len(e.Requests)
	}
	s.UniqueURLs = len(urls)
	return s
}

// Ranked returns the failure counts in m, most frequent first, ties broken
// by reason.
func Ranked(m map[string]int) []Count {
	counts := make([]Count, 0, len(m))
	for _, reason := range slices.Sorted(maps.Keys(m)) {
		counts = append(counts, Count{Reason: reason, N: m[reason]})
	}
	slices.SortStableFunc(counts, func(a, b Count) int {
		return cmp.Compare(b.N, a.N)
	})
	return counts
}
