//go:build darwin || freebsd || linux

package native

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abyssdigger/acebridge/acelog"
	"github.com/abyssdigger/acebridge/dynmod"
)

func Test_Open_Missing(t *testing.T) {
	_, err := NewOpener().Open(filepath.Join(t.TempDir(), dynmod.LibraryName("gauge")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_Open_NotAnObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), dynmod.LibraryName("gauge"))
	assert.NoError(t, os.WriteFile(path, []byte("not an ELF file"), 0o644))
	_, err := NewOpener().Open(path)
	assert.Error(t, err)
}

func Test_Loader_NativeMissing(t *testing.T) {
	var levels []acelog.Level
	l := dynmod.NewLoader(
		dynmod.WithOpener(NewOpener()),
		dynmod.WithLibraryDir(t.TempDir()),
		dynmod.WithDiagnostics(acelog.SinkFunc(func(level acelog.Level, tag, msg string) {
			levels = append(levels, level)
		})),
	)
	m, err := l.GetDynamicModule_with_err("Gauge")
	assert.Nil(t, m)
	assert.ErrorIs(t, err, dynmod.ErrLoadLibrary)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, []acelog.Level{acelog.LVL_DEBUG}, levels, "absence is expected")
}

func Test_Module(t *testing.T) {
	m := &Module{component: "QRCode", Handle: 0xdead}
	assert.Equal(t, "QRCode", m.Component())
}
