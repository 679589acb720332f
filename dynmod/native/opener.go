//go:build darwin || freebsd || linux

// Package native opens component libraries with the host dynamic linker.
//
// A component library is a shared object exporting one C-linkage create
// entry point per component:
//
//	void *OHOS_ACE_DynamicModule_Create<Component>(void);
//
// The returned pointer is the module handle owned by the library; NULL means
// the module could not be created. Libraries are opened with
// RTLD_NOW|RTLD_LOCAL and stay loaded until the loader closes them.
package native

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/abyssdigger/acebridge/dynmod"
)

// Module is a component module backed by a native handle.
type Module struct {
	component string
	Handle    uintptr // pointer returned by the create entry point
}

func (m *Module) Component() string { return m.component }

// Opener implements dynmod.Opener on top of dlopen.
type Opener struct{}

func NewOpener() *Opener { return &Opener{} }

// Open loads the shared object at path. A missing file wraps os.ErrNotExist so
// the loader can tell absence from a broken library.
func (o *Opener) Open(path string) (dynmod.Library, error) {
	if strings.ContainsRune(path, os.PathSeparator) {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
	}
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return &library{path: path, handle: handle}, nil
}

type library struct {
	mtx    sync.Mutex
	path   string
	handle uintptr // 0 after Close
}

// Lookup resolves a create entry point. The component name is the symbol
// suffix after dynmod.CREATE_SYMBOL_PREFIX.
func (l *library) Lookup(symbol string) (dynmod.CreateFunc, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.handle == 0 {
		return nil, fmt.Errorf("%w: %s", dynmod.ErrLibraryClosed, l.path)
	}
	component, ok := strings.CutPrefix(symbol, dynmod.CREATE_SYMBOL_PREFIX)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a create entry point", dynmod.ErrSymbolNotFound, symbol)
	}
	fn, err := purego.Dlsym(l.handle, symbol)
	if err != nil || fn == 0 {
		return nil, errors.Join(fmt.Errorf("%w: %s in %s", dynmod.ErrSymbolNotFound, symbol, l.path), err)
	}
	return func() dynmod.Module {
		ptr, _, _ := purego.SyscallN(fn)
		if ptr == 0 {
			return nil
		}
		return &Module{component: component, Handle: ptr}
	}, nil
}

func (l *library) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.handle == 0 {
		return fmt.Errorf("%w: %s", dynmod.ErrLibraryClosed, l.path)
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	if err != nil {
		return fmt.Errorf("dlclose %s: %w", l.path, err)
	}
	return nil
}

var _ dynmod.Opener = (*Opener)(nil)
