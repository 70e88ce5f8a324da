package compiler

import (
	"log/slog"
	"time"
)

// Options controls a single build.
type Options struct {
	// Logger receives pass progress at debug level and warnings at warn
	// level. A nil Logger discards everything.
	Logger *slog.Logger

	// Session identifies the build in log records.
	Session string

	// StrictFunctionMatching turns a mismatch between a call's declared
	// function control and the dispatched function into an error instead
	// of a warning.
	StrictFunctionMatching bool

	// RejectGeneralizationCycles enables the post-build check that the
	// class supertype graph is acyclic.
	RejectGeneralizationCycles bool

	// ValidateMappingRoots enables the post-build check that each class
	// mapped more than once has exactly one root class mapping.
	ValidateMappingRoots bool

	// Extensions are consulted in order for element, class mapping and
	// connection kinds the core does not handle.
	Extensions []Extension

	// ObservePass, if set, is called after each pass with the number of
	// elements it visited and its duration.
	ObservePass func(pass string, elements int, elapsed time.Duration)
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		RejectGeneralizationCycles: true,
		ValidateMappingRoots:       true,
	}
}

func (o Options) logger() *slog.Logger {
	l := o.Logger
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	if o.Session != "" {
		l = l.With("session", o.Session)
	}
	return l
}
