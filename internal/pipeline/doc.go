// Package pipeline imports report files through a sequence of steps.
//
// Each file becomes a Job that passes through the steps of a Pipeline:
// parsing, optional validation, and storage. Each step receives the job
// and records its outcome on it. A BatchProcessor runs one pipeline per
// file with bounded concurrency using errgroup, so one bad file never
// stops the others.
//
// Within a file, documents are still read one at a time by a single
// goroutine; only files run in parallel.
package pipeline
