package acelog

import (
	"errors"
	"sync"
)

const testlogstr = "Test log АБВ こんにちは, 世界`'é\"\\\x5A\t и други глупости!"
const panicStr = "panic generated in host"
const errorStr = "error generated in host"

type call struct {
	level Level
	tag   string
	msg   string
}

// RecordingHost exposes all five delivery methods and records calls in order.
type RecordingHost struct {
	mtx   sync.Mutex
	calls []call
}

func (h *RecordingHost) record(level Level, tag, msg string) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.calls = append(h.calls, call{level, tag, msg})
	return nil
}

func (h *RecordingHost) Debug(tag, msg string) error { return h.record(LVL_DEBUG, tag, msg) }
func (h *RecordingHost) Info(tag, msg string) error  { return h.record(LVL_INFO, tag, msg) }
func (h *RecordingHost) Warn(tag, msg string) error  { return h.record(LVL_WARN, tag, msg) }
func (h *RecordingHost) Error(tag, msg string) error { return h.record(LVL_ERROR, tag, msg) }
func (h *RecordingHost) Fatal(tag, msg string) error { return h.record(LVL_FATAL, tag, msg) }

func (h *RecordingHost) Calls() []call {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return append([]call(nil), h.calls...)
}

func (h *RecordingHost) Count() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.calls)
}

func (h *RecordingHost) Messages() (msgs []string) {
	for _, c := range h.Calls() {
		msgs = append(msgs, c.msg)
	}
	return
}

// WarnOnlyHost exposes a single delivery method.
type WarnOnlyHost struct {
	rec RecordingHost
}

func (h *WarnOnlyHost) Warn(tag, msg string) error { return h.rec.record(LVL_WARN, tag, msg) }
func (h *WarnOnlyHost) Debug()                     {} // wrong signature, must not resolve

// FaultyHost fails on ERROR and panics on FATAL.
type FaultyHost struct {
	RecordingHost
}

func (h *FaultyHost) Error(tag, msg string) error { return errors.New(errorStr) }
func (h *FaultyHost) Fatal(tag, msg string) error { panic(panicStr) }

// GateHost blocks inside the first WARN delivery until gate is closed.
type GateHost struct {
	RecordingHost
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func newGateHost() *GateHost {
	return &GateHost{entered: make(chan struct{}), gate: make(chan struct{})}
}

func (h *GateHost) Warn(tag, msg string) error {
	h.once.Do(func() {
		close(h.entered)
		<-h.gate
	})
	return h.record(LVL_WARN, tag, msg)
}

// RecordingSink is a fallback sink recording writes in order.
type RecordingSink struct {
	RecordingHost
}

func (s *RecordingSink) Write(level Level, tag, msg string) {
	s.record(level, tag, msg)
}

// Returns recorded messages with the given tag.
func (s *RecordingSink) Tagged(tag string) (msgs []string) {
	for _, c := range s.Calls() {
		if c.tag == tag {
			msgs = append(msgs, c.msg)
		}
	}
	return
}

type PanicWriter struct{}

func (p *PanicWriter) Write(b []byte) (int, error) { panic(panicStr) }

type FakeWriter struct {
	buffer []byte
}

func (f *FakeWriter) Write(b []byte) (int, error) {
	f.buffer = append(f.buffer, b...)
	return len(b), nil
}
func (f *FakeWriter) String() string { return string(f.buffer) }
func (f *FakeWriter) Clear()         { f.buffer = f.buffer[:0] }
