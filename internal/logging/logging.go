// Package logging wraps github.com/go-logr/logr — already part of the
// teacher's dependency graph transitively through akita — so the CLI
// driver and timing.Core have one shared, structured logger instead of
// ad-hoc fmt.Printf calls.
package logging

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// New returns a logr.Logger that writes one JSON object per line to
// stderr, named name. verbose enables V(1) output (the Reorder
// Buffer's per-instruction retire lines); V(0) lines, such as the
// Reorder Buffer's flush events, are emitted either way.
func New(name string, verbose bool) logr.Logger {
	opts := funcr.Options{
		LogCaller:    funcr.None,
		Verbosity:    0,
	}
	if verbose {
		opts.Verbosity = 1
	}
	sink := funcr.NewJSON(func(obj string) {
		_, _ = os.Stderr.WriteString(obj + "\n")
	}, opts)
	return logr.New(sink).WithName(name)
}

// Discard returns a logger that drops everything, for tests that do
// not want log noise.
func Discard() logr.Logger {
	return logr.Discard()
}
