// Package main provides the entry point for the httpreqs CLI.
//
// httpreqs reads OONI http_requests reports (multi-document YAML streams),
// prints their records, validates them, and keeps an import history in a
// local SQLite database so that two runs can be compared.
//
// Usage:
//
//	httpreqs parse report.yamloo
//	httpreqs import reports/*.yamloo
//
// See --help for all available options.
package main

// main is the entry point for httpreqs.
func main() {
	Execute()
}
