package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// TestRedactingHandler_Keys tests masking by attribute key.
func TestRedactingHandler_Keys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "Cookie header is masked", key: "Cookie", value: "session=abc123", wantMask: true},
		{name: "Set-Cookie header is masked", key: "Set-Cookie", value: "id=42", wantMask: true},
		{name: "authorization is masked", key: "Authorization", value: "Basic dXNlcjpwdw==", wantMask: true},
		{name: "keyword match is masked", key: "api_token", value: "t0k3n", wantMask: true},
		{name: "url is kept", key: "url", value: "http://freehomepage.com", wantMask: false},
		{name: "report_id is kept", key: "report_id", value: "3SSsiXiSGLBth", wantMask: false},
		{name: "probe_asn is kept", key: "probe_asn", value: "AS7922", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			NewLogger(&buf, true).Info("test", tt.key, tt.value)
			out := buf.String()

			if tt.wantMask {
				if strings.Contains(out, tt.value) {
					t.Errorf("expected %q to be masked: %s", tt.value, out)
				}
				if !strings.Contains(out, MaskValue) {
					t.Errorf("expected mask in output: %s", out)
				}
			} else if !strings.Contains(out, tt.value) {
				t.Errorf("expected %q in output: %s", tt.value, out)
			}
		})
	}
}

// TestRedactingHandler_Groups tests masking inside groups and WithAttrs.
func TestRedactingHandler_Groups(t *testing.T) {
	t.Parallel()

	t.Run("masks members of a group", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewLogger(&buf, true).Info("response",
			slog.Group("headers", slog.String("Server", "nginx"), slog.String("Set-Cookie", "id=42")),
		)
		out := buf.String()
		if strings.Contains(out, "id=42") {
			t.Errorf("expected cookie to be masked: %s", out)
		}
		if !strings.Contains(out, "nginx") {
			t.Errorf("expected server header to be kept: %s", out)
		}
	})

	t.Run("masks WithAttrs attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewLogger(&buf, true).With("probe_ip", "198.51.100.1").Info("header built")
		if strings.Contains(buf.String(), "198.51.100.1") {
			t.Errorf("expected probe_ip to be masked: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "probe_ip=198.51.100.0/24") {
			t.Errorf("expected network to be kept: %s", buf.String())
		}
	})

	t.Run("WithGroup keeps masking", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewLogger(&buf, true).WithGroup("request").Info("sent", "cookie", "a=b")
		if strings.Contains(buf.String(), "a=b") {
			t.Errorf("expected cookie to be masked: %s", buf.String())
		}
	})
}

// TestNewLogger_Levels tests verbose and quiet levels.
func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	t.Run("quiet hides debug and info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, false)
		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")

		out := buf.String()
		if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
			t.Errorf("expected only warnings: %s", out)
		}
		if !strings.Contains(out, "warn message") {
			t.Errorf("expected warning: %s", out)
		}
	})

	t.Run("verbose shows debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewLogger(&buf, true).Debug("debug message")
		if !strings.Contains(buf.String(), "debug message") {
			t.Errorf("expected debug output: %s", buf.String())
		}
	})
}

// TestNewJSONLogger tests JSON output with masking.
func TestNewJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewJSONLogger(&buf, true).Info("built", "probe_ip", "203.0.113.7")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if record["probe_ip"] != "203.0.113.0/24" {
		t.Errorf("got probe_ip %v", record["probe_ip"])
	}
}

// TestRedactingHandler_Addresses tests that address keys keep only the network.
func TestRedactingHandler_Addresses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{name: "IPv4 keeps /24", key: "probe_ip", value: "203.0.113.7", want: "probe_ip=203.0.113.0/24"},
		{name: "IPv6 keeps /48", key: "client_ip", value: "2001:db8:1:2::7", want: "client_ip=2001:db8:1::/48"},
		{name: "key case is ignored", key: "Probe_IP", value: "198.51.100.9", want: "Probe_IP=198.51.100.0/24"},
		{name: "non-address is masked", key: "probe_ip", value: "127.0.0.1 (local)", want: "probe_ip=" + MaskValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			NewLogger(&buf, true).Info("test", tt.key, tt.value)
			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in output: %s", tt.want, out)
			}
			if strings.Contains(out, tt.value) {
				t.Errorf("expected %q to be masked: %s", tt.value, out)
			}
		})
	}
}

// TestNewRedactingHandler_Nil tests the nil fallback.
func TestNewRedactingHandler_Nil(t *testing.T) {
	t.Parallel()

	if h := NewRedactingHandler(nil); h.handler == nil {
		t.Error("expected default handler")
	}
}

// TestMaskIP tests address masking.
func TestMaskIP(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"203.0.113.7": "203.0.113.0/24",
		"127.0.0.1":   "127.0.0.0/24",
		"2001:db8::1": "2001:db8::/48",
		"not an ip":   MaskValue,
		"":            MaskValue,
	}
	for in, want := range tests {
		if got := MaskIP(in); got != want {
			t.Errorf("MaskIP(%q) = %q, expected %q", in, got, want)
		}
	}
}
