// Package acelog is the asynchronous host log delivery pipeline. Log call
// sites on any goroutine format a message and queue it; a single worker
// goroutine delivers queued messages, in order, to the host logger registered
// with RegisterLogger. Without a registered host logger (or below its minimal
// level) messages go synchronously to the native fallback sink.
package acelog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"sync"
	"time"
)

// Creates a stopped pipeline with the given options. Defaults: minimal level
// DEFAULT_MIN_LEVEL, fallback sink writing to [os.Stderr], DROP_PENDING
// shutdown policy.
//
// Preferred usage example:
//
//	p := acelog.New(acelog.WithFallback(sink))
//	p.RegisterLogger(host)
//	defer p.UnregisterLogger()
//	p.Log(acelog.DOMAIN_FRAMEWORK, acelog.LVL_WARN, "hello %d", 42)
func New(opts ...Option) *Pipeline {
	p := new(Pipeline)
	p.state = _STATE_STOPPED
	p.level = DEFAULT_MIN_LEVEL
	p.policy = DROP_PENDING
	p.maxsize = DEFAULT_MAX_MSG_SIZE
	p.wname = DEFAULT_WORKER_NAME
	p.fallbck = NewWriterSink(os.Stderr)
	p.wake = sync.NewCond(&p.sync.queuMtx)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterLogger installs host as the active host logger, replacing any
// previous one, and starts the delivery worker if it is not running.
//
// Levels the host does not expose are skipped at delivery time. A nil host is
// a no-op reported to the fallback sink.
func (p *Pipeline) RegisterLogger(host HostLogger) error {
	if host == nil {
		p.diagnose(LVL_WARN, _ERROR_MESSAGE_HOST_IS_NIL+", registration ignored")
		return ErrNilHostLogger
	}
	p.sync.lcycMtx.Lock()
	defer p.sync.lcycMtx.Unlock()
	binding := resolveBinding(host)
	p.sync.bindMtx.Lock()
	p.binding = binding
	p.sync.bindMtx.Unlock()
	if binding.resolved() < int(_LVL_MAX_for_checks_only-LVL_DEBUG) {
		p.diagnose(LVL_DEBUG, fmt.Sprintf("host logger exposes %d of %d levels", binding.resolved(), int(_LVL_MAX_for_checks_only-LVL_DEBUG)))
	}
	p.start()
	return nil
}

// UnregisterLogger stops the delivery worker, waits for it to exit and clears
// the host binding. Queued tasks are discarded (DROP_PENDING) or delivered
// first (DRAIN_PENDING). Calling it when no logger is registered is a no-op.
func (p *Pipeline) UnregisterLogger() {
	p.sync.lcycMtx.Lock()
	defer p.sync.lcycMtx.Unlock()
	p.stop()
	p.sync.bindMtx.Lock()
	p.binding = nil
	p.sync.bindMtx.Unlock()
}

// Launches the worker goroutine if the pipeline is not active. The queue is
// created on first start.
func (p *Pipeline) start() {
	p.sync.queuMtx.Lock()
	defer p.sync.queuMtx.Unlock()
	if p.state == _STATE_ACTIVE {
		return
	}
	if p.queue == nil {
		p.queue = newLogQueue(DEFAULT_QUEUE_CAP)
	}
	p.state = _STATE_ACTIVE
	p.sync.waitEnd.Go(func() {
		pprof.Do(context.Background(), pprof.Labels("worker", p.wname), func(context.Context) {
			p.procced()
		})
	})
	p.metrics.WorkerRunning(true)
}

// Requests the worker to exit, waits for it and applies the shutdown policy
// to whatever is left in the queue.
func (p *Pipeline) stop() {
	p.sync.queuMtx.Lock()
	if p.state != _STATE_ACTIVE {
		p.sync.queuMtx.Unlock()
		return
	}
	p.state = _STATE_STOPPING
	p.wake.Broadcast()
	p.sync.queuMtx.Unlock()

	p.sync.waitEnd.Wait()

	p.sync.queuMtx.Lock()
	defer p.sync.queuMtx.Unlock()
	if n := p.queue.clear(); n > 0 {
		p.metrics.TasksDropped(_REASON_STOPPED, n, true)
	}
	p.state = _STATE_STOPPED
	p.metrics.WorkerRunning(false)
}

// Log formats a message and queues it for the host logger, or writes it to
// the fallback sink when no host logger is registered, the worker is not
// running, or level is below the minimal level. Never blocks on delivery.
func (p *Pipeline) Log(domain string, level Level, format string, args ...any) {
	p.Log_with_err(domain, level, format, args...)
}

// Same as Log but reports whether the message was queued. A false result with
// nil error means the message went to the fallback sink.
func (p *Pipeline) Log_with_err(domain string, level Level, format string, args ...any) (queued bool, err error) {
	if p == nil {
		return false, errors.New(_ERROR_MESSAGE_PIPELINE_IS_NIL)
	}
	msg := p.formatMessage(format, args...)
	return p.LogText(domain, level, msg), nil
}

// LogText routes an already formatted message. Returns true if it was queued.
func (p *Pipeline) LogText(domain string, level Level, msg string) bool {
	level = normLevel(level)
	msg = truncateUTF8(msg, p.maxsize)
	if level < p.MinLevel() {
		p.fallbackWrite(level, domain, msg, _REASON_BELOW_LEVEL)
		return false
	}
	reason := p.enqueue(logTask{domain: domain, level: level, msg: msg})
	if reason != "" {
		p.fallbackWrite(level, domain, msg, reason)
		return false
	}
	return true
}

// Pushes a task while holding the binding read lock so registration changes
// can not interleave. Returns the fallback reason or "" when queued.
func (p *Pipeline) enqueue(task logTask) (reason string) {
	p.sync.bindMtx.RLock()
	defer p.sync.bindMtx.RUnlock()
	if p.binding == nil {
		return _REASON_UNBOUND
	}
	p.sync.queuMtx.Lock()
	defer p.sync.queuMtx.Unlock()
	if p.state != _STATE_ACTIVE {
		return _REASON_STOPPED
	}
	task.pushed = time.Now()
	p.queue.push(task)
	p.metrics.TaskEnqueued(task.domain)
	p.wake.Signal()
	return ""
}

// Formats printf-style, also without arguments: "100%%" becomes "100%".
// Use LogText for text that must stay verbatim.
func (p *Pipeline) formatMessage(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// Sets the minimal level delivered to the host logger. Messages below it go
// to the fallback sink.
//
// The operation is protected by mutex for thread safety.
func (p *Pipeline) SetMinLevel(minlevel Level) *Pipeline {
	p.sync.chngMtx.Lock()
	defer p.sync.chngMtx.Unlock()
	p.level = normLevel(minlevel)
	return p
}

// Returns the minimal level delivered to the host logger.
func (p *Pipeline) MinLevel() Level {
	p.sync.chngMtx.RLock()
	defer p.sync.chngMtx.RUnlock()
	return p.level
}

// Sets the native fallback sink; nil silently discards fallback writes.
//
// The operation is protected by mutex for thread safety.
func (p *Pipeline) SetFallback(sink Sink) *Pipeline {
	p.sync.fbckMtx.Lock()
	defer p.sync.fbckMtx.Unlock()
	if sink != nil {
		p.fallbck = sink
	} else {
		p.fallbck = SinkFunc(func(Level, string, string) {})
	}
	return p
}

// True if the worker is running (i.e. messages can be queued).
func (p *Pipeline) IsActive() bool {
	p.sync.queuMtx.Lock()
	defer p.sync.queuMtx.Unlock()
	return p.state == _STATE_ACTIVE
}

// True if a host logger is registered.
func (p *Pipeline) IsRegistered() bool {
	p.sync.bindMtx.RLock()
	defer p.sync.bindMtx.RUnlock()
	return p.binding != nil
}

// Returns the number of tasks waiting for delivery.
func (p *Pipeline) QueueLen() int {
	p.sync.queuMtx.Lock()
	defer p.sync.queuMtx.Unlock()
	if p.queue == nil {
		return 0
	}
	return p.queue.len()
}

// Writes to the fallback sink and counts the write.
func (p *Pipeline) fallbackWrite(level Level, tag, msg, reason string) {
	p.metrics.FallbackWrite(reason)
	p.sync.fbckMtx.RLock()
	defer p.sync.fbckMtx.RUnlock()
	p.fallbck.Write(level, tag, msg)
}

// Reports a pipeline diagnostic to the fallback sink.
func (p *Pipeline) diagnose(level Level, msg string) {
	p.sync.fbckMtx.RLock()
	defer p.sync.fbckMtx.RUnlock()
	p.fallbck.Write(level, DIAGNOSTIC_TAG, msg)
}

// Exported sentinel errors.
var (
	ErrNilHostLogger = errors.New(_ERROR_MESSAGE_HOST_IS_NIL)
)
