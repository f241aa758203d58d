package schema

import (
	"fmt"

	"github.com/nao1215/httpreqs/internal/convert"
	"github.com/nao1215/httpreqs/internal/model"
)

// fields reads typed values out of a document and keeps the first
// conversion error. Once an error is recorded every accessor returns the
// zero value, so a builder can read all fields and check err once.
type fields struct {
	doc Document
	err error
}

func (f *fields) fail(key string, err error) {
	if f.err == nil {
		f.err = fieldError(key, err)
	}
}

func (f *fields) text(key string) *string {
	if f.err != nil {
		return nil
	}
	v, err := convert.Text(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) boolean(key string) *bool {
	if f.err != nil {
		return nil
	}
	v, err := convert.Bool(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) float(key string) *float64 {
	if f.err != nil {
		return nil
	}
	v, err := convert.Float(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) timestamp(key string) *model.Timestamp {
	if f.err != nil {
		return nil
	}
	v, err := convert.Timestamp(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) textList(key string) []string {
	if f.err != nil {
		return nil
	}
	v, err := convert.TextList(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) textMap(key string) map[string]string {
	if f.err != nil {
		return nil
	}
	v, err := convert.TextMap(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) headers(key string) *model.Headers {
	if f.err != nil {
		return nil
	}
	v, err := convert.Headers(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) mapping(key string) Document {
	if f.err != nil {
		return nil
	}
	v, err := convert.Mapping(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) list(key string) []any {
	if f.err != nil {
		return nil
	}
	v, err := convert.List(f.doc[key])
	if err != nil {
		f.fail(key, err)
	}
	return v
}

// BuildHeader builds a Header from the first document of a report.
func BuildHeader(doc Document) (*model.Header, error) {
	f := &fields{doc: doc}
	h := &model.Header{
		BackendVersion:  f.text("backend_version"),
		InputHashes:     f.textList("input_hashes"),
		Options:         f.textList("options"),
		ProbeASN:        f.text("probe_asn"),
		ProbeCC:         f.text("probe_cc"),
		ProbeCity:       f.text("probe_city"),
		ProbeIP:         f.text("probe_ip"),
		ReportID:        f.text("report_id"),
		SoftwareName:    f.text("software_name"),
		SoftwareVersion: f.text("software_version"),
		StartTime:       f.timestamp("start_time"),
		TestHelpers:     f.textMap("test_helpers"),
		TestName:        f.text("test_name"),
		TestVersion:     f.text("test_version"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return h, nil
}

// BuildEntry builds an Entry from one measurement document.
// EntryRenames is applied first.
func BuildEntry(doc Document) (*model.Entry, error) {
	f := &fields{doc: Rename(doc, EntryRenames)}
	e := &model.Entry{
		Agent:             f.text("agent"),
		BodyLengthMatch:   f.boolean("body_length_match"),
		BodyProportion:    f.float("body_proportion"),
		ControlFailure:    f.text("control_failure"),
		ExperimentFailure: f.text("experiment_failure"),
		Factor:            f.float("factor"),
		HeadersDiff:       f.textList("headers_diff"),
		HeadersMatch:      f.boolean("headers_match"),
		InputURL:          f.text("input_url"),
		SocksProxy:        f.text("socksproxy"),
		TestRuntime:       f.float("test_runtime"),
		TestStartTime:     f.timestamp("test_start_time"),
	}

	items := f.list("requests")
	if f.err != nil {
		return nil, f.err
	}
	if items != nil {
		e.Requests = make([]model.RequestResponse, 0, len(items))
		for i, item := range items {
			path := fmt.Sprintf("requests[%d]", i)
			sub, err := convert.Mapping(item)
			if err != nil {
				return nil, fieldError(path, err)
			}
			rr, err := BuildRequestResponse(sub)
			if err != nil {
				return nil, fieldError(path, err)
			}
			e.Requests = append(e.Requests, *rr)
		}
	}
	return e, nil
}

// BuildRequestResponse builds one element of Entry.Requests.
func BuildRequestResponse(doc Document) (*model.RequestResponse, error) {
	f := &fields{doc: doc}
	rr := &model.RequestResponse{
		Failure: f.text("failure"),
	}
	reqDoc := f.mapping("request")
	respDoc := f.mapping("response")
	if f.err != nil {
		return nil, f.err
	}

	if reqDoc != nil {
		req, err := BuildRequest(reqDoc)
		if err != nil {
			return nil, fieldError("request", err)
		}
		rr.Request = req
	}
	if respDoc != nil {
		resp, err := BuildResponse(respDoc)
		if err != nil {
			return nil, fieldError("response", err)
		}
		rr.Response = resp
	}
	return rr, nil
}

// BuildRequest builds a Request.
func BuildRequest(doc Document) (*model.Request, error) {
	f := &fields{doc: doc}
	req := &model.Request{
		Body:    f.text("body"),
		Headers: f.headers("headers"),
		Method:  f.text("method"),
		Tor:     f.textMap("tor"),
		URL:     f.text("url"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return req, nil
}

// BuildResponse builds a Response.
func BuildResponse(doc Document) (*model.Response, error) {
	f := &fields{doc: doc}
	resp := &model.Response{
		Body:    f.text("body"),
		Code:    f.text("code"),
		Headers: f.headers("headers"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return resp, nil
}
