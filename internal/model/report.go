package model

// Header is the first document of an http_requests report.
// It describes the probe, the software that produced the report, and the
// test that was run.
type Header struct {
	// BackendVersion is the version of the collector backend.
	BackendVersion *string `json:"backend_version"`

	// InputHashes are the hashes of the input lists used by the test.
	InputHashes []string `json:"input_hashes"`

	// Options are the command-line options the test was started with.
	Options []string `json:"options"`

	// ProbeASN is the autonomous system of the probe, e.g. "AS7922".
	ProbeASN *string `json:"probe_asn"`

	// ProbeCC is the two-letter country code of the probe.
	ProbeCC *string `json:"probe_cc"`

	// ProbeCity is usually null; probes rarely disclose their city.
	ProbeCity *string `json:"probe_city"`

	// ProbeIP is the probe address, often scrubbed to 127.0.0.1.
	ProbeIP *string `json:"probe_ip"`

	// ReportID identifies the report on the collector.
	ReportID *string `json:"report_id"`

	SoftwareName    *string `json:"software_name"`
	SoftwareVersion *string `json:"software_version"`

	// StartTime is when the test run started.
	StartTime *Timestamp `json:"start_time"`

	// TestHelpers maps helper names to their addresses.
	TestHelpers map[string]string `json:"test_helpers"`

	TestName    *string `json:"test_name"`
	TestVersion *string `json:"test_version"`
}

// Entry is one measurement: a URL fetched both directly and over Tor.
type Entry struct {
	Agent *string `json:"agent"`

	// BodyLengthMatch reports whether the control and experiment bodies
	// had matching lengths.
	BodyLengthMatch *bool `json:"body_length_match"`

	// BodyProportion is the ratio between the two body lengths.
	BodyProportion *float64 `json:"body_proportion"`

	// ControlFailure is the failure of the Tor (control) request, if any.
	ControlFailure *string `json:"control_failure"`

	// ExperimentFailure is the failure of the direct request, if any.
	ExperimentFailure *string `json:"experiment_failure"`

	// Factor is the body proportion threshold used for BodyLengthMatch.
	Factor *float64 `json:"factor"`

	// HeadersDiff lists header names that differed between the two
	// responses. It is a set; order carries no meaning.
	HeadersDiff []string `json:"headers_diff"`

	HeadersMatch *bool `json:"headers_match"`

	// InputURL is the tested URL. Reports store it under the key "input".
	InputURL *string `json:"input_url"`

	// Requests holds every request/response pair made for this entry.
	Requests []RequestResponse `json:"requests"`

	SocksProxy *string `json:"socksproxy"`

	// TestRuntime is the duration of the measurement in seconds.
	TestRuntime *float64 `json:"test_runtime"`

	TestStartTime *Timestamp `json:"test_start_time"`
}

// RequestResponse pairs one request with its response.
type RequestResponse struct {
	Failure  *string   `json:"failure"`
	Request  *Request  `json:"request"`
	Response *Response `json:"response"`
}

// Request is an HTTP request as recorded by the probe.
type Request struct {
	Body    *string  `json:"body"`
	Headers *Headers `json:"headers"`
	Method  *string  `json:"method"`

	// Tor describes whether the request went over Tor, e.g. {"is_tor": "false"}.
	Tor map[string]string `json:"tor"`

	URL *string `json:"url"`
}

// Response is an HTTP response as recorded by the probe.
type Response struct {
	Body *string `json:"body"`

	// Code is the numeric status code, held as text.
	Code *string `json:"code"`

	Headers *Headers `json:"headers"`
}

// Report is a complete parsed report: its header and all entries in
// document order.
type Report struct {
	Header  *Header  `json:"header"`
	Entries []*Entry `json:"entries"`
}

// ID returns the report id, or an empty string when the header has none.
func (r *Report) ID() string {
	if r == nil || r.Header == nil || r.Header.ReportID == nil {
		return ""
	}
	return *r.Header.ReportID
}

// URL returns the input URL, or an empty string when the entry has none.
func (e *Entry) URL() string {
	if e == nil || e.InputURL == nil {
		return ""
	}
	return *e.InputURL
}

// Failed reports whether either side of the measurement failed.
func (e *Entry) Failed() bool {
	return e.ControlFailure != nil || e.ExperimentFailure != nil
}
