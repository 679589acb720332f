package dynmod

/*
Core types of the lazy component module loader:
  - Module: opaque capability object produced by a component library
  - Opener/Library/CreateFunc: the plugin ABI the loader drives
  - the static component to library family table

Library naming follows the host packaging convention:

	LIBRARY_PREFIX + family + LIBRARY_SUFFIX      e.g. libarkui_checkbox.so
	CREATE_SYMBOL_PREFIX + component              e.g. OHOS_ACE_DynamicModule_CreateCheckbox
*/

import (
	"errors"
)

// Module is the capability object of a lazily loaded component.
type Module interface {
	Component() string
}

// CreateFunc is a resolved create entry point. It returns nil when the
// library could not build the module.
type CreateFunc func() Module

// Opener opens component libraries by path.
type Opener interface {
	Open(path string) (Library, error)
}

// Library is an open component library handle.
type Library interface {
	Lookup(symbol string) (CreateFunc, error)
	Close() error
}

// ComponentModule is the minimal Module: a component name and nothing else.
type ComponentModule struct {
	Name string
}

func (m *ComponentModule) Component() string { return m.Name }

/////////////////////////////////////////////////////////////////////////////////////////

const (
	LIBRARY_PREFIX       = "libarkui_"
	LIBRARY_SUFFIX       = ".so"
	CREATE_SYMBOL_PREFIX = "OHOS_ACE_DynamicModule_Create"
	DIAGNOSTIC_TAG       = "dynmod" // tag of the loader's own diagnostics
)

const (
	_ERROR_MESSAGE_EMPTY_NAME    = "empty module name"
	_ERROR_MESSAGE_NO_MAPPING    = "no library mapping for module"
	_ERROR_MESSAGE_LOAD_LIBRARY  = "failed to load library"
	_ERROR_MESSAGE_NO_ENTRY      = "create entry point not found"
	_ERROR_MESSAGE_CREATE_FAILED = "create entry point returned no module"
	_ERROR_MESSAGE_NOT_BUNDLED   = "library is not bundled"
	_ERROR_MESSAGE_NO_SYMBOL     = "symbol not found"
	_ERROR_MESSAGE_CLOSED        = "library already closed"
)

// Lookup outcomes and load results used as metrics labels.
const (
	_OUTCOME_HIT      = "hit"
	_OUTCOME_MISS     = "miss"
	_OUTCOME_UNMAPPED = "unmapped"
	_OUTCOME_INVALID  = "invalid"

	_RESULT_OK            = "ok"
	_RESULT_NO_LIBRARY    = "no_library"
	_RESULT_NO_ENTRY      = "no_entry_point"
	_RESULT_CREATE_FAILED = "create_failed"
	_RESULT_CONFLICT      = "conflict"
)

// Exported sentinel errors. Loader errors wrap them, use errors.Is.
var (
	ErrEmptyName         = errors.New(_ERROR_MESSAGE_EMPTY_NAME)
	ErrNoMapping         = errors.New(_ERROR_MESSAGE_NO_MAPPING)
	ErrLoadLibrary       = errors.New(_ERROR_MESSAGE_LOAD_LIBRARY)
	ErrNoEntryPoint      = errors.New(_ERROR_MESSAGE_NO_ENTRY)
	ErrCreateFailed      = errors.New(_ERROR_MESSAGE_CREATE_FAILED)
	ErrLibraryNotBundled = errors.New(_ERROR_MESSAGE_NOT_BUNDLED)
	ErrSymbolNotFound    = errors.New(_ERROR_MESSAGE_NO_SYMBOL)
	ErrLibraryClosed     = errors.New(_ERROR_MESSAGE_CLOSED)
)

/////////////////////////////////////////////////////////////////////////////////////////

// DefaultMapping returns a fresh copy of the component to library family
// table. The table is fixed at build time; there is no runtime discovery.
func DefaultMapping() map[string]string {
	return map[string]string{
		"Checkbox":       "checkbox",
		"CheckboxGroup":  "checkbox",
		"Gauge":          "gauge",
		"Rating":         "rating",
		"Slider":         "slider",
		"Radio":          "radio",
		"Toggle":         "toggle",
		"Marquee":        "marquee",
		"Indexer":        "indexer",
		"Stepper":        "stepper",
		"StepperItem":    "stepper",
		"Swiper":         "swiper",
		"Indicator":      "swiper",
		"Calendar":       "calendar",
		"CalendarPicker": "calendar",
		"QRCode":         "qrcode",
	}
}

// LibraryName returns the library file name of a family.
func LibraryName(family string) string {
	return LIBRARY_PREFIX + family + LIBRARY_SUFFIX
}

// CreateSymbol returns the create entry point symbol of a component.
func CreateSymbol(component string) string {
	return CREATE_SYMBOL_PREFIX + component
}

// Converts a panic value into a compact readable string.
func panicDesc(panic any) string {
	switch v := panic.(type) {
	case string:
		return ": `" + v + "`"
	case error:
		return ": (error) `" + v.Error() + "`"
	}
	return " [no panic description]"
}
