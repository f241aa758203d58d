// Package log provides the slog setup used by httpreqs.
//
// Reports carry data that should not leak into logs: probe IP addresses,
// cookies and authorization headers captured in requests and responses.
// RedactingHandler wraps any slog.Handler and masks such attributes before
// they reach the output, at every level including debug.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("entry built", "probe_ip", "203.0.113.7") // probe_ip=203.0.113.0/24
//	logger.Debug("request", "Cookie", "id=42")              // Cookie=***REDACTED***
//
// Probe addresses keep their network (/24 for IPv4, /48 for IPv6) so logs
// still show where a measurement came from. NewJSONLogger emits the same
// records as JSON lines.
package log
