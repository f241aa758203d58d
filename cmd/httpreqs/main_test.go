package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// reportTemplate is a valid two-entry report; %s is the report id and %d
// the response code of the first entry.
const reportTemplate = `---
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
body_length_match: true
headers_match: false
headers_diff: [Set-Cookie]
requests:
- request:
    headers:
    - - User-Agent
      - [Mozilla/5.0]
    - - User-Agent
      - [Other/1.0]
    method: GET
    url: http://freehomepage.com
  response:
    body: <html><head><title>Free Homepage</title></head></html>
    code: %d
...
---
input: http://example.com
test_start_time: 1441193048.0
experiment_failure: dns_lookup_error
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

// brokenReport has an entry document that cannot be built.
const brokenReport = `---
report_id: broken
test_name: http_requests
...
---
input: http://example.com
test_start_time: yesterday
...
`

func sampleReport(reportID string, code int) string {
	return fmt.Sprintf(reportTemplate, reportID, code)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// runCLI executes the root command with an empty configuration file so that
// no .httpreqs in the working or home directory leaks into the test.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := writeFile(t, t.TempDir(), "config.yaml", "validate: false\n")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
