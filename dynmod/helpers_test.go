package dynmod

import (
	"sync"
	"sync/atomic"

	"github.com/abyssdigger/acebridge/acelog"
)

// countingOpener wraps an Opener and counts Open attempts, successful opens
// and closes.
type countingOpener struct {
	inner    Opener
	attempts atomic.Int32
	opens    atomic.Int32
	closes   atomic.Int32
	hold     chan struct{} // if not nil, Open blocks until it is closed
}

func (o *countingOpener) Open(path string) (Library, error) {
	if o.hold != nil {
		<-o.hold
	}
	o.attempts.Add(1)
	lib, err := o.inner.Open(path)
	if err != nil {
		return nil, err
	}
	o.opens.Add(1)
	return &countingLibrary{Library: lib, owner: o}, nil
}

// balanced reports whether every successful Open was closed.
func (o *countingOpener) balanced() bool {
	return o.opens.Load() == o.closes.Load()
}

type countingLibrary struct {
	Library
	owner *countingOpener
}

func (l *countingLibrary) Close() error {
	l.owner.closes.Add(1)
	return l.Library.Close()
}

// failingOpener fails every Open with err.
type failingOpener struct {
	err   error
	opens atomic.Int32
}

func (o *failingOpener) Open(path string) (Library, error) {
	o.opens.Add(1)
	return nil, o.err
}

// nilSymbolOpener opens libraries resolving every symbol to a nil CreateFunc.
type nilSymbolOpener struct{}

func (nilSymbolOpener) Open(path string) (Library, error) { return nilSymbolLibrary{}, nil }

type nilSymbolLibrary struct{}

func (nilSymbolLibrary) Lookup(string) (CreateFunc, error) { return nil, nil }
func (nilSymbolLibrary) Close() error                      { return nil }

func componentFactory(name string) Factory {
	return func() Module { return &ComponentModule{Name: name} }
}

// bundledOpener registers the checkbox and gauge families with working
// factories, a slider family whose create returns nil and a rating family
// whose create panics.
func bundledOpener() *StaticOpener {
	return NewStaticOpener().
		Register(LibraryName("checkbox"), map[string]Factory{
			"Checkbox":      componentFactory("Checkbox"),
			"CheckboxGroup": componentFactory("CheckboxGroup"),
		}).
		Register(LibraryName("gauge"), map[string]Factory{
			"Gauge": componentFactory("Gauge"),
		}).
		Register(LibraryName("slider"), map[string]Factory{
			"Slider": func() Module { return nil },
		}).
		Register(LibraryName("rating"), map[string]Factory{
			"Rating": func() Module { panic("rating init failed") },
		})
}

type call struct {
	level acelog.Level
	msg   string
}

// recordingSink records diagnostics.
type recordingSink struct {
	mtx   sync.Mutex
	calls []call
}

func (s *recordingSink) Write(level acelog.Level, tag, msg string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.calls = append(s.calls, call{level, msg})
}

func (s *recordingSink) Levels() (levels []acelog.Level) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, c := range s.calls {
		levels = append(levels, c.level)
	}
	return
}
