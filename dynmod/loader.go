// Package dynmod is the lazy component module loader. A component's module is
// created on first request by opening the component's library, resolving its
// create entry point and calling it; the result is cached for the lifetime of
// the Loader. Concurrent first requests for the same component load it once.
package dynmod

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abyssdigger/acebridge/acelog"
	"github.com/abyssdigger/acebridge/metrics"
)

// Loader maps component names to library families, loads modules on demand
// and owns the library handles of every cached module.
type Loader struct {
	sync struct {
		regMtx sync.Mutex         // guards modules and libs
		flight singleflight.Group // collapses concurrent first loads per name
	}
	modules map[string]Module  // registry, entries are never replaced
	libs    map[string]Library // library handle backing each cached module
	mapping map[string]string  // component -> family
	opener  Opener
	libdir  string
	diag    acelog.Sink
	metrics *metrics.ModuleCollector
}

// NewLoader creates a loader with the default mapping table, a fresh
// StaticOpener and diagnostics written to [os.Stderr].
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		modules: make(map[string]Module),
		libs:    make(map[string]Library),
		mapping: DefaultMapping(),
		opener:  NewStaticOpener(),
		diag:    acelog.NewWriterSink(os.Stderr),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetDynamicModule returns the module of the named component, loading it on
// first use. Returns nil when the component is unknown or can not be loaded;
// the reason goes to the diagnostics sink.
func (l *Loader) GetDynamicModule(name string) Module {
	m, _ := l.GetDynamicModule_with_err(name)
	return m
}

// Same as GetDynamicModule but also returns the failure reason, wrapping one
// of ErrEmptyName, ErrNoMapping, ErrLoadLibrary, ErrNoEntryPoint or
// ErrCreateFailed.
func (l *Loader) GetDynamicModule_with_err(name string) (Module, error) {
	if name == "" {
		l.metrics.Lookup(_OUTCOME_INVALID)
		return nil, ErrEmptyName
	}
	if m, ok := l.cached(name); ok {
		l.metrics.Lookup(_OUTCOME_HIT)
		return m, nil
	}
	family, ok := l.mapping[name]
	if !ok {
		l.metrics.Lookup(_OUTCOME_UNMAPPED)
		l.diagnose(acelog.LVL_DEBUG, "no library mapping for "+name)
		return nil, fmt.Errorf("%w: %s", ErrNoMapping, name)
	}
	l.metrics.Lookup(_OUTCOME_MISS)
	v, err, _ := l.sync.flight.Do(name, func() (any, error) {
		// an earlier flight may have finished between the miss and Do
		if m, ok := l.cached(name); ok {
			return m, nil
		}
		return l.load(name, family)
	})
	if err != nil {
		return nil, err
	}
	return v.(Module), nil
}

// load opens the family library, creates the module and registers it. Any
// failure closes what was opened.
func (l *Loader) load(name, family string) (m Module, err error) {
	path := l.libraryPath(family)
	result := _RESULT_OK
	started := time.Now()
	defer func() { l.metrics.Load(family, result, time.Since(started)) }()

	lib, err := l.opener.Open(path)
	if err != nil {
		result = _RESULT_NO_LIBRARY
		level := acelog.LVL_WARN
		if errors.Is(err, ErrLibraryNotBundled) || errors.Is(err, os.ErrNotExist) {
			level = acelog.LVL_DEBUG
		}
		l.diagnose(level, "can not load "+path+" for "+name+": "+err.Error())
		return nil, fmt.Errorf("%w %s: %w", ErrLoadLibrary, path, err)
	}

	symbol := CreateSymbol(name)
	create, err := lib.Lookup(symbol)
	if err == nil && create == nil {
		err = ErrSymbolNotFound
	}
	if err != nil {
		result = _RESULT_NO_ENTRY
		l.closeLibrary(lib, path)
		l.diagnose(acelog.LVL_WARN, "no "+symbol+" in "+path+": "+err.Error())
		return nil, fmt.Errorf("%w %s in %s: %w", ErrNoEntryPoint, symbol, path, err)
	}

	m, err = callCreate(create)
	if m == nil {
		result = _RESULT_CREATE_FAILED
		l.closeLibrary(lib, path)
		desc := "nil module"
		if err != nil {
			desc = err.Error()
		}
		l.diagnose(acelog.LVL_WARN, symbol+" in "+path+" failed: "+desc)
		return nil, fmt.Errorf("%w: %s in %s: %s", ErrCreateFailed, symbol, path, desc)
	}

	existing, inserted := l.insert(name, m, lib)
	if !inserted {
		result = _RESULT_CONFLICT
		l.closeLibrary(lib, path)
	}
	return existing, nil
}

// callCreate runs the entry point and converts a panic into an error.
func callCreate(create CreateFunc) (m Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, errors.New("panic in create entry point"+panicDesc(r))
		}
	}()
	return create(), nil
}

// insert stores m unless name is already registered. Returns the registered
// module and whether m was inserted.
func (l *Loader) insert(name string, m Module, lib Library) (Module, bool) {
	l.sync.regMtx.Lock()
	defer l.sync.regMtx.Unlock()
	if old, ok := l.modules[name]; ok {
		return old, false
	}
	l.modules[name] = m
	l.libs[name] = lib
	l.metrics.Cached(len(l.modules))
	return m, true
}

func (l *Loader) cached(name string) (Module, bool) {
	l.sync.regMtx.Lock()
	defer l.sync.regMtx.Unlock()
	m, ok := l.modules[name]
	return m, ok
}

func (l *Loader) closeLibrary(lib Library, path string) {
	if err := lib.Close(); err != nil {
		l.diagnose(acelog.LVL_WARN, "can not close "+path+": "+err.Error())
	}
}

func (l *Loader) libraryPath(family string) string {
	name := LibraryName(family)
	if l.libdir == "" {
		return name
	}
	return filepath.Join(l.libdir, name)
}

func (l *Loader) diagnose(level acelog.Level, msg string) {
	l.diag.Write(level, DIAGNOSTIC_TAG, msg)
}

// LibraryFor returns the library path the named component is loaded from.
func (l *Loader) LibraryFor(name string) (string, bool) {
	family, ok := l.mapping[name]
	if !ok {
		return "", false
	}
	return l.libraryPath(family), true
}

// Loaded returns a sorted snapshot of the cached component names.
func (l *Loader) Loaded() []string {
	l.sync.regMtx.Lock()
	defer l.sync.regMtx.Unlock()
	return slices.Sorted(maps.Keys(l.modules))
}

// Count returns the number of cached modules.
func (l *Loader) Count() int {
	l.sync.regMtx.Lock()
	defer l.sync.regMtx.Unlock()
	return len(l.modules)
}

// Close drops every cached module and closes the library handles backing
// them. Modules handed out before are invalid afterwards. Close errors are
// joined.
func (l *Loader) Close() error {
	l.sync.regMtx.Lock()
	libs := l.libs
	l.modules = make(map[string]Module)
	l.libs = make(map[string]Library)
	l.metrics.Cached(0)
	l.sync.regMtx.Unlock()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(libs)) {
		if err := libs[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close library of %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
