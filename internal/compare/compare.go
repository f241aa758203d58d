// Package compare reports how two http_requests reports differ.
//
// Entries are matched by input URL. When a URL appears more than once in a
// report, occurrences are matched in document order. Matched entries are
// compared as JSON with volatile fields (test_start_time, test_runtime)
// removed, and the structural difference is rendered with jd.
package compare

import (
	"encoding/json"
	"fmt"
	"slices"

	jd "github.com/josephburnett/jd/lib"
	"github.com/nao1215/httpreqs/internal/model"
)

// Result is the outcome of comparing a base report with a target report.
type Result struct {
	BaseID   string `json:"base_id"`
	TargetID string `json:"target_id"`

	// Added lists URLs measured only in the target report.
	Added []string `json:"added,omitempty"`

	// Removed lists URLs measured only in the base report.
	Removed []string `json:"removed,omitempty"`

	// Changed lists matched entries whose content differs.
	Changed []Change `json:"changed,omitempty"`

	// Unchanged is the number of matched entries with identical content.
	Unchanged int `json:"unchanged"`
}

// Change describes one matched entry that differs.
type Change struct {
	URL string `json:"url"`

	// Occurrence is the 1-based occurrence of URL within each report.
	Occurrence int `json:"occurrence"`

	// Diff is the jd rendering of the difference, base to target.
	Diff string `json:"diff"`
}

// HasChanges reports whether the reports differ in any entry.
func (r *Result) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0 || len(r.Changed) > 0
}

type key struct {
	url        string
	occurrence int
}

// Reports compares base with target.
func Reports(base, target *model.Report) (*Result, error) {
	result := &Result{BaseID: base.ID(), TargetID: target.ID()}

	baseKeys, baseEntries := index(base.Entries)
	targetKeys, targetEntries := index(target.Entries)

	for _, k := range baseKeys {
		t, ok := targetEntries[k]
		if !ok {
			result.Removed = append(result.Removed, k.url)
			continue
		}
		diff, err := Entries(baseEntries[k], t)
		if err != nil {
			return nil, fmt.Errorf("failed to compare %s: %w", k.url, err)
		}
		if diff == "" {
			result.Unchanged++
			continue
		}
		result.Changed = append(result.Changed, Change{URL: k.url, Occurrence: k.occurrence, Diff: diff})
	}
	for _, k := range targetKeys {
		if _, ok := baseEntries[k]; !ok {
			result.Added = append(result.Added, k.url)
		}
	}
	return result, nil
}

// Entries renders the structural difference between two entries, ignoring
// volatile fields. It returns an empty string when they are equal.
func Entries(a, b *model.Entry) (string, error) {
	left, err := stable(a)
	if err != nil {
		return "", err
	}
	right, err := stable(b)
	if err != nil {
		return "", err
	}

	leftNode, err := jd.ReadJsonString(left)
	if err != nil {
		return "", fmt.Errorf("failed to read base entry: %w", err)
	}
	rightNode, err := jd.ReadJsonString(right)
	if err != nil {
		return "", fmt.Errorf("failed to read target entry: %w", err)
	}
	return leftNode.Diff(rightNode).Render(), nil
}

// stable marshals e without its volatile fields. headers_diff is a set,
// so it is compared sorted.
func stable(e *model.Entry) (string, error) {
	c := *e
	c.TestStartTime = nil
	c.TestRuntime = nil
	if e.HeadersDiff != nil {
		c.HeadersDiff = slices.Clone(e.HeadersDiff)
		slices.Sort(c.HeadersDiff)
	}
	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry: %w", err)
	}
	return string(data), nil
}

// index keys entries by URL and occurrence, returning keys in document order.
func index(entries []*model.Entry) ([]key, map[key]*model.Entry) {
	keys := make([]key, 0, len(entries))
	byKey := make(map[key]*model.Entry, len(entries))
	seen := make(map[string]int)
	for _, e := range entries {
		u := e.URL()
		seen[u]++
		k := key{url: u, occurrence: seen[u]}
		keys = append(keys, k)
		byKey[k] = e
	}
	return keys, byKey
}
