package dynmod

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"sync"
)

// Factory builds a module of one component.
type Factory func() Module

// StaticOpener is an in-process Opener: component libraries are factory sets
// registered under a library file name instead of shared objects on disk.
// Paths are matched by base name, so a library directory does not matter.
type StaticOpener struct {
	mtx  sync.RWMutex
	libs map[string]map[string]Factory // library name -> component -> factory
}

func NewStaticOpener() *StaticOpener {
	return &StaticOpener{libs: make(map[string]map[string]Factory)}
}

// Register adds factories (keyed by component name) to library, merging with
// earlier registrations. Returns the opener for chaining.
func (o *StaticOpener) Register(library string, factories map[string]Factory) *StaticOpener {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	lib := o.libs[library]
	if lib == nil {
		lib = make(map[string]Factory, len(factories))
		o.libs[library] = lib
	}
	maps.Copy(lib, factories)
	return o
}

// Open implements Opener. Unknown libraries fail with ErrLibraryNotBundled.
func (o *StaticOpener) Open(path string) (Library, error) {
	name := filepath.Base(path)
	o.mtx.RLock()
	defer o.mtx.RUnlock()
	lib, ok := o.libs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLibraryNotBundled, name)
	}
	return &staticLibrary{name: name, factories: maps.Clone(lib)}, nil
}

// staticLibrary is a snapshot of the registered factories taken at Open.
type staticLibrary struct {
	mtx       sync.Mutex
	name      string
	factories map[string]Factory
	closed    bool
}

func (l *staticLibrary) Lookup(symbol string) (CreateFunc, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.closed {
		return nil, fmt.Errorf("%w: %s", ErrLibraryClosed, l.name)
	}
	component, ok := strings.CutPrefix(symbol, CREATE_SYMBOL_PREFIX)
	factory := l.factories[component]
	if !ok || factory == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, symbol, l.name)
	}
	return CreateFunc(factory), nil
}

func (l *staticLibrary) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.closed {
		return fmt.Errorf("%w: %s", ErrLibraryClosed, l.name)
	}
	l.closed = true
	l.factories = nil
	return nil
}
