package acelog

import (
	"bytes"
	"io"
	"strconv"
	"sync"
	"time"
)

/*
Native fallback sink.

The sink is the synchronous logging facility used when no host logger is
bound, when a message is below the host minimal level, and for the
pipeline's own diagnostics. It is always available and never reports
failures to the caller.

WriterSink formats lines for a single io.Writer:

	[time ][[level id]][prefix delimiter][color]tag delimiter message[reset]\n
*/

// Sink is the native synchronous log facility.
type Sink interface {
	Write(level Level, tag, msg string)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(level Level, tag, msg string)

func (f SinkFunc) Write(level Level, tag, msg string) { f(level, tag, msg) }

// WriterSink writes formatted lines to an io.Writer. Writes are serialized;
// panics of the underlying writer are swallowed.
type WriterSink struct {
	mtx       sync.Mutex
	output    io.Writer
	msgbuf    *bytes.Buffer // buffer reused while building formatted output
	colormap  *LevelMap     // level-associated ANSI terminal color fragments
	prefixmap *LevelMap     // per-level textual prefix
	delimiter []byte        // separator after prefix/tag (usually ":")
	timefmt   string        // time.Format string; if empty, no timestamp is written
	showlvlid bool          // whether to include numeric level id like "[3]"
	minlevel  Level         // minimal level written by this sink
	now       func() time.Time
}

// NewWriterSink creates a sink for output with short level prefixes and the
// default delimiter. A nil output discards everything.
func NewWriterSink(output io.Writer) *WriterSink {
	if output == nil {
		output = io.Discard
	}
	return &WriterSink{
		output:    output,
		msgbuf:    bytes.NewBuffer(make([]byte, 0, 256)),
		prefixmap: LevelShortNames,
		delimiter: []byte(DEFAULT_DELIMITER),
		now:       time.Now,
	}
}

// Sets the prefix map (per-level prefix) and the delimiter.
func (s *WriterSink) SetLevelPrefix(prefixmap *LevelMap, delimiter string) *WriterSink {
	return s.change(func() {
		s.prefixmap = prefixmap
		s.delimiter = []byte(delimiter)
	})
}

// Assigns a color map (ANSI fragments) used when building lines.
func (s *WriterSink) SetLevelColor(colormap *LevelMap) *WriterSink {
	return s.change(func() { s.colormap = colormap })
}

// Sets the time.Format string used to prefix lines. If empty no timestamp is
// written.
//
// More about time format layouts at https://pkg.go.dev/time#Layout.
func (s *WriterSink) SetTimeFormat(format, delimiter string) *WriterSink {
	return s.change(func() {
		if format == "" {
			s.timefmt = ""
		} else {
			s.timefmt = format + delimiter
		}
	})
}

// Enables printing a level id (like "[3]") before any other decorations.
func (s *WriterSink) ShowLevelCode() *WriterSink {
	return s.change(func() { s.showlvlid = true })
}

// Sets the minimal level written by the sink.
func (s *WriterSink) SetMinLevel(minlevel Level) *WriterSink {
	return s.change(func() { s.minlevel = normLevel(minlevel) })
}

func (s *WriterSink) change(f func()) *WriterSink {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	f()
	return s
}

// Write implements Sink.
func (s *WriterSink) Write(level Level, tag, msg string) {
	s.mtx.Lock()
	defer func() {
		recover() // a broken output must not break the caller
		s.mtx.Unlock()
	}()
	if normLevel(level) < s.minlevel {
		return
	}
	s.buildLine(level, tag, msg).WriteTo(s.output)
}

// buildLine formats one line into the sink buffer and returns it.
func (s *WriterSink) buildLine(level Level, tag, msg string) *bytes.Buffer {
	buf := s.msgbuf
	buf.Reset()
	level = normLevel(level)
	// optional time prefix
	if len(s.timefmt) > 0 {
		buf.WriteString(s.now().Format(s.timefmt))
	}
	// optional numeric level id (compact path for small max)
	if s.showlvlid {
		if _LVL_MAX_for_checks_only <= 10 {
			buf.Write([]byte{'[', '0' + byte(level), ']'})
		} else {
			buf.WriteString("[" + strconv.FormatUint(uint64(level), 10) + "]")
		}
	}
	// optional prefix map + delimiter
	if s.prefixmap != nil {
		buf.WriteString(s.prefixmap[level])
		buf.Write(s.delimiter)
	}
	// optional color prefix (ANSI)
	withColor := s.colormap != nil
	if withColor {
		buf.WriteString(ANSI_COL_PRFX)
		buf.WriteString(s.colormap[level])
		buf.WriteString(ANSI_COL_SUFX)
	}
	if len(tag) > 0 {
		buf.WriteString(tag)
		buf.Write(s.delimiter)
	}
	buf.WriteString(msg)
	if withColor {
		buf.WriteString(ANSI_COL_RESET)
	}
	buf.WriteByte('\n')
	return buf
}
