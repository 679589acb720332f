package dynmod

import (
	"maps"

	"github.com/abyssdigger/acebridge/acelog"
	"github.com/abyssdigger/acebridge/metrics"
)

// Option is a functional option applied by NewLoader.
type Option func(*Loader)

// WithOpener sets the library opener. nil keeps the default StaticOpener.
func WithOpener(opener Opener) Option {
	return func(l *Loader) {
		if opener != nil {
			l.opener = opener
		}
	}
}

// WithLibraryDir joins dir in front of every library file name.
func WithLibraryDir(dir string) Option {
	return func(l *Loader) { l.libdir = dir }
}

// WithMapping replaces the component to library family table.
func WithMapping(mapping map[string]string) Option {
	return func(l *Loader) { l.mapping = maps.Clone(mapping) }
}

// WithDiagnostics sets the sink of the loader's own diagnostics. nil keeps
// the default.
func WithDiagnostics(sink acelog.Sink) Option {
	return func(l *Loader) {
		if sink != nil {
			l.diag = sink
		}
	}
}

// WithMetrics records loader activity into c.
func WithMetrics(c *metrics.ModuleCollector) Option {
	return func(l *Loader) { l.metrics = c }
}
