package acelog

import (
	"reflect"
	"slices"
	"sync"
)

// MultiSink fans every write out to a set of sinks in the order they were
// added. A sink that panics does not stop the others. Sinks of non-comparable
// types (like a plain SinkFunc) can not be deduplicated or removed one by one.
type MultiSink struct {
	mtx   sync.RWMutex
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	return m.Add(sinks...)
}

// Add appends sinks. nil values and sinks already present are skipped.
func (m *MultiSink) Add(sinks ...Sink) *MultiSink {
	return m.operate(sinks, func(s Sink) {
		if !slices.ContainsFunc(m.sinks, func(have Sink) bool { return sameSink(have, s) }) {
			m.sinks = append(m.sinks, s)
		}
	})
}

// Remove drops sinks from the set.
func (m *MultiSink) Remove(sinks ...Sink) *MultiSink {
	return m.operate(sinks, func(s Sink) {
		m.sinks = slices.DeleteFunc(m.sinks, func(have Sink) bool { return sameSink(have, s) })
	})
}

func (m *MultiSink) Clear() *MultiSink {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.sinks = nil
	return m
}

func (m *MultiSink) Len() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.sinks)
}

func (m *MultiSink) operate(sinks []Sink, operation func(s Sink)) *MultiSink {
	if len(sinks) == 0 {
		return m
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for _, s := range sinks {
		if s != nil {
			operation(s)
		}
	}
	return m
}

// Write implements Sink.
func (m *MultiSink) Write(level Level, tag, msg string) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	for _, s := range m.sinks {
		writeRecovered(s, level, tag, msg)
	}
}

func sameSink(a, b Sink) bool {
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}

func writeRecovered(s Sink, level Level, tag, msg string) {
	defer func() { recover() }()
	s.Write(level, tag, msg)
}
