// Package validate checks built records against the rules a well-formed
// http_requests report follows.
//
// Validation is a separate step. Building a record never validates it, and
// validating a record never changes it. The result lists every violation
// found instead of stopping at the first one.
package validate

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/nao1215/httpreqs/internal/model"
	"golang.org/x/text/cases"
)

// ErrInvalid is wrapped by Result.Err when a record has violations.
var ErrInvalid = errors.New("record failed validation")

// asnPattern matches autonomous system identifiers such as "AS7922".
var asnPattern = regexp.MustCompile(`^AS[0-9]+$`)

// httpMethods lists the request methods a probe may record.
var httpMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// Violation is one broken rule.
type Violation struct {
	// Field is the path of the offending field, e.g. "requests[1].request.url".
	Field string `json:"field"`

	// Message describes the problem.
	Message string `json:"message"`
}

// String formats the violation as "field: message".
func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// Result collects the violations found in one or more records.
type Result struct {
	Violations []Violation `json:"violations"`
}

// OK reports whether no violations were found.
func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

// Err returns nil when OK, otherwise an error wrapping ErrInvalid that
// lists every violation.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	msgs := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		msgs[i] = v.String()
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func (r *Result) add(field, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge appends other's violations with prefix prepended to each field.
func (r *Result) Merge(prefix string, other *Result) {
	for _, v := range other.Violations {
		r.Violations = append(r.Violations, Violation{Field: prefix + v.Field, Message: v.Message})
	}
}

// Header validates a report header.
func Header(h *model.Header) *Result {
	r := &Result{}
	if h == nil {
		r.add("header", "missing")
		return r
	}

	requireText(r, "report_id", h.ReportID)
	requireText(r, "test_name", h.TestName)
	if h.StartTime == nil {
		r.add("start_time", "is required")
	}

	if h.ProbeIP != nil && !govalidator.IsIP(*h.ProbeIP) {
		r.add("probe_ip", "%q is not an IP address", *h.ProbeIP)
	}
	if h.ProbeCC != nil && !govalidator.IsISO3166Alpha2(strings.ToUpper(*h.ProbeCC)) {
		r.add("probe_cc", "%q is not an ISO 3166 country code", *h.ProbeCC)
	}
	if h.ProbeASN != nil && !asnPattern.MatchString(*h.ProbeASN) {
		r.add("probe_asn", "%q is not of the form AS<number>", *h.ProbeASN)
	}
	return r
}

// Entry validates one measurement entry.
func Entry(e *model.Entry) *Result {
	r := &Result{}
	if e == nil {
		r.add("entry", "missing")
		return r
	}

	if e.InputURL == nil || *e.InputURL == "" {
		r.add("input_url", "is required")
	} else if !isURL(*e.InputURL) {
		r.add("input_url", "%q is not a URL", *e.InputURL)
	}
	if e.TestStartTime == nil {
		r.add("test_start_time", "is required")
	}
	if e.TestRuntime != nil && *e.TestRuntime < 0 {
		r.add("test_runtime", "must not be negative")
	}

	checkHeaderSet(r, "headers_diff", e.HeadersDiff)

	for i, rr := range e.Requests {
		r.Merge(fmt.Sprintf("requests[%d].", i), requestResponse(rr))
	}
	return r
}

// Report validates a header and every entry. Entry fields are prefixed with
// "entries[i]." where i is the 0-based entry position.
func Report(report *model.Report) *Result {
	r := &Result{}
	if report == nil {
		r.add("report", "missing")
		return r
	}
	r.Merge("header.", Header(report.Header))
	for i, e := range report.Entries {
		r.Merge(fmt.Sprintf("entries[%d].", i), Entry(e))
	}
	return r
}

func requestResponse(rr model.RequestResponse) *Result {
	r := &Result{}
	if req := rr.Request; req != nil {
		if req.URL != nil && !isURL(*req.URL) {
			r.add("request.url", "%q is not a URL", *req.URL)
		}
		if req.Method != nil && !httpMethods[*req.Method] {
			r.add("request.method", "%q is not an HTTP method", *req.Method)
		}
	}
	if resp := rr.Response; resp != nil && resp.Code != nil {
		if *resp.Code == "" || !govalidator.IsInt(*resp.Code) {
			r.add("response.code", "%q is not a status code", *resp.Code)
		}
	}
	return r
}

func requireText(r *Result, field string, v *string) {
	if v == nil || strings.TrimSpace(*v) == "" {
		r.add(field, "is required")
	}
}

// isURL accepts absolute http and https URLs.
func isURL(s string) bool {
	if !govalidator.IsURL(s) {
		return false
	}
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// checkHeaderSet reports header names listed more than once, comparing
// names case-insensitively as HTTP does.
func checkHeaderSet(r *Result, field string, names []string) {
	fold := cases.Fold()
	seen := make(map[string]string, len(names))
	for _, name := range names {
		key := fold.String(name)
		if first, ok := seen[key]; ok {
			r.add(field, "%q duplicates %q", name, first)
			continue
		}
		seen[key] = name
	}
}
