package dynmod

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssdigger/acebridge/acelog"
	"github.com/abyssdigger/acebridge/metrics"
)

func newTestLoader(opener Opener, opts ...Option) (*Loader, *recordingSink) {
	sink := &recordingSink{}
	return NewLoader(append([]Option{WithOpener(opener), WithDiagnostics(sink)}, opts...)...), sink
}

func Test_DefaultMapping(t *testing.T) {
	tests := []struct {
		name    string // description of this test case
		family  string
		library string
	}{
		{"Checkbox", "checkbox", "libarkui_checkbox.so"},
		{"CheckboxGroup", "checkbox", "libarkui_checkbox.so"},
		{"Gauge", "gauge", "libarkui_gauge.so"},
		{"Rating", "rating", "libarkui_rating.so"},
		{"Slider", "slider", "libarkui_slider.so"},
		{"Radio", "radio", "libarkui_radio.so"},
		{"Toggle", "toggle", "libarkui_toggle.so"},
		{"Marquee", "marquee", "libarkui_marquee.so"},
		{"Indexer", "indexer", "libarkui_indexer.so"},
		{"Stepper", "stepper", "libarkui_stepper.so"},
		{"StepperItem", "stepper", "libarkui_stepper.so"},
		{"Swiper", "swiper", "libarkui_swiper.so"},
		{"Indicator", "swiper", "libarkui_swiper.so"},
		{"Calendar", "calendar", "libarkui_calendar.so"},
		{"CalendarPicker", "calendar", "libarkui_calendar.so"},
		{"QRCode", "qrcode", "libarkui_qrcode.so"},
	}
	mapping := DefaultMapping()
	assert.Len(t, mapping, len(tests))
	l := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.family, mapping[tt.name])
			lib, ok := l.LibraryFor(tt.name)
			assert.True(t, ok)
			assert.Equal(t, tt.library, lib)
		})
	}
	_, ok := l.LibraryFor("Button")
	assert.False(t, ok)

	// callers get a copy
	mapping["Gauge"] = "changed"
	assert.Equal(t, "gauge", DefaultMapping()["Gauge"])
}

func Test_LibraryFor_Dir(t *testing.T) {
	l := NewLoader(WithLibraryDir("/system/lib64"))
	lib, ok := l.LibraryFor("QRCode")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join("/system/lib64", "libarkui_qrcode.so"), lib)
	assert.Equal(t, "OHOS_ACE_DynamicModule_CreateQRCode", CreateSymbol("QRCode"))
}

func Test_GetDynamicModule_Success(t *testing.T) {
	opener := &countingOpener{inner: bundledOpener()}
	c := metrics.NewCollector("")
	l, sink := newTestLoader(opener, WithMetrics(c.Module))

	m := l.GetDynamicModule("Checkbox")
	require.NotNil(t, m)
	assert.Equal(t, "Checkbox", m.Component())
	assert.Same(t, m, l.GetDynamicModule("Checkbox"))
	assert.Equal(t, int32(1), opener.opens.Load())

	// same family, separate module and handle
	g := l.GetDynamicModule("CheckboxGroup")
	require.NotNil(t, g)
	assert.Equal(t, "CheckboxGroup", g.Component())
	assert.Equal(t, int32(2), opener.opens.Load())
	assert.Zero(t, opener.closes.Load())

	assert.Equal(t, 2, l.Count())
	assert.Equal(t, float64(2), testutil.ToFloat64(c.Module.CachedGauge()))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.Module.LoadCounter(_RESULT_OK)))
	assert.Empty(t, sink.Levels())

	require.NoError(t, l.Close())
	assert.True(t, opener.balanced())
	assert.Zero(t, l.Count())
	assert.Empty(t, l.Loaded())
	assert.Zero(t, testutil.ToFloat64(c.Module.CachedGauge()))

	// usable again after Close
	assert.NotNil(t, l.GetDynamicModule("Checkbox"))
	assert.Equal(t, int32(3), opener.opens.Load())
}

func Test_GetDynamicModule_Failures(t *testing.T) {
	tests := []struct {
		name      string // description of this test case
		module    string
		opener    Opener
		wantErr   error
		wantCause error
		wantLevel acelog.Level
	}{
		{"empty_name", "", bundledOpener(), ErrEmptyName, nil, acelog.LVL_UNKNOWN},
		{"no_mapping", "Button", bundledOpener(), ErrNoMapping, nil, acelog.LVL_DEBUG},
		{"not_bundled", "Toggle", bundledOpener(), ErrLoadLibrary, ErrLibraryNotBundled, acelog.LVL_DEBUG},
		{"missing_file", "Toggle", &failingOpener{err: os.ErrNotExist}, ErrLoadLibrary, os.ErrNotExist, acelog.LVL_DEBUG},
		{"open_error", "Toggle", &failingOpener{err: errors.New("bad ELF header")}, ErrLoadLibrary, nil, acelog.LVL_WARN},
		{"no_symbol", "Radio", NewStaticOpener().Register(LibraryName("radio"), nil), ErrNoEntryPoint, ErrSymbolNotFound, acelog.LVL_WARN},
		{"nil_symbol", "Radio", nilSymbolOpener{}, ErrNoEntryPoint, ErrSymbolNotFound, acelog.LVL_WARN},
		{"nil_module", "Slider", bundledOpener(), ErrCreateFailed, nil, acelog.LVL_WARN},
		{"create_panics", "Rating", bundledOpener(), ErrCreateFailed, nil, acelog.LVL_WARN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, sink := newTestLoader(tt.opener)
			m, err := l.GetDynamicModule_with_err(tt.module)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantCause != nil {
				assert.ErrorIs(t, err, tt.wantCause)
			}
			if tt.wantLevel == acelog.LVL_UNKNOWN {
				assert.Empty(t, sink.Levels())
			} else {
				assert.Equal(t, []acelog.Level{tt.wantLevel}, sink.Levels())
			}
			assert.Nil(t, l.GetDynamicModule(tt.module))
			assert.Zero(t, l.Count())
		})
	}
}

func Test_GetDynamicModule_NoMappingNoOpen(t *testing.T) {
	opener := &countingOpener{inner: bundledOpener()}
	l, _ := newTestLoader(opener, WithMapping(map[string]string{"Gauge": "gauge"}))
	assert.Nil(t, l.GetDynamicModule("Checkbox")) // bundled, but not mapped any more
	assert.Nil(t, l.GetDynamicModule(""))
	assert.Zero(t, opener.attempts.Load())
	assert.NotNil(t, l.GetDynamicModule("Gauge"))
	assert.Equal(t, int32(1), opener.attempts.Load())
}

func Test_GetDynamicModule_LeakFree(t *testing.T) {
	tests := []struct {
		name   string // description of this test case
		module string
	}{
		{"symbol_failure", "Checkbox"},
		{"nil_creation", "Slider"},
		{"panicking_creation", "Rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := bundledOpener()
			if tt.module == "Checkbox" {
				inner = NewStaticOpener().Register(LibraryName("checkbox"), map[string]Factory{"Other": componentFactory("Other")})
			}
			opener := &countingOpener{inner: inner}
			l, _ := newTestLoader(opener)
			for range 3 {
				assert.Nil(t, l.GetDynamicModule(tt.module))
			}
			assert.Equal(t, int32(3), opener.opens.Load(), "failures are not cached")
			assert.True(t, opener.balanced(), "opens %d closes %d", opener.opens.Load(), opener.closes.Load())
		})
	}
}

func Test_GetDynamicModule_Memoization(t *testing.T) {
	opener := &countingOpener{inner: bundledOpener(), hold: make(chan struct{})}
	l, _ := newTestLoader(opener)

	workers := runtime.GOMAXPROCS(0) * 4
	results := make([]Module, workers)
	var ready, wg sync.WaitGroup
	ready.Add(workers)
	wg.Add(workers)
	for w := range workers {
		go func() {
			defer wg.Done()
			ready.Done()
			results[w] = l.GetDynamicModule("Gauge")
		}()
	}
	ready.Wait()
	close(opener.hold)
	wg.Wait()

	assert.Equal(t, int32(1), opener.opens.Load())
	require.NotNil(t, results[0])
	for w := range workers {
		assert.Same(t, results[0], results[w], "worker %d", w)
	}
	assert.Equal(t, 1, l.Count())
}

func Test_GetDynamicModule_ConcurrentMixed(t *testing.T) {
	opener := &countingOpener{inner: bundledOpener()}
	l, _ := newTestLoader(opener)
	names := []string{"Checkbox", "CheckboxGroup", "Gauge", "Slider", "Button"}

	workers := runtime.GOMAXPROCS(0) * 4
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := range workers {
		go func() {
			defer wg.Done()
			for i := range 200 {
				_ = l.GetDynamicModule(names[(i+w)%len(names)])
				_ = l.Loaded()
			}
		}()
	}
	wg.Wait()

	if diff := cmp.Diff([]string{"Checkbox", "CheckboxGroup", "Gauge"}, l.Loaded()); diff != "" {
		t.Fatalf("Loaded() mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, l.Close())
	assert.True(t, opener.balanced())
}

func Test_insert_Conflict(t *testing.T) {
	opener := &countingOpener{inner: bundledOpener()}
	l, _ := newTestLoader(opener)
	first := l.GetDynamicModule("Gauge")
	require.NotNil(t, first)

	// a second load finishing after the first one keeps the registered module
	m, err := l.load("Gauge", "gauge")
	require.NoError(t, err)
	assert.Same(t, first, m)
	assert.Equal(t, int32(2), opener.opens.Load())
	assert.Equal(t, int32(1), opener.closes.Load())
	assert.Equal(t, 1, l.Count())
}

func Test_Close_Errors(t *testing.T) {
	l, _ := newTestLoader(bundledOpener())
	require.NotNil(t, l.GetDynamicModule("Gauge"))
	lib := l.libs["Gauge"]
	require.NoError(t, lib.Close()) // closed behind the loader's back
	err := l.Close()
	assert.ErrorIs(t, err, ErrLibraryClosed)
	assert.ErrorContains(t, err, "Gauge")
	assert.NoError(t, l.Close())
}
