package acelog

import "github.com/abyssdigger/acebridge/metrics"

// Option is a functional option applied by New.
type Option func(*Pipeline)

// WithMinLevel sets the minimal level delivered to the host logger.
func WithMinLevel(level Level) Option {
	return func(p *Pipeline) { p.level = normLevel(level) }
}

// WithFallback sets the native fallback sink. nil keeps the default.
func WithFallback(sink Sink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.fallbck = sink
		}
	}
}

// WithShutdownPolicy selects what happens to queued tasks on UnregisterLogger.
func WithShutdownPolicy(policy ShutdownPolicy) Option {
	return func(p *Pipeline) { p.policy = normPolicy(policy) }
}

// WithMaxMessageSize bounds formatted messages (bytes). Non-positive values
// reset to DEFAULT_MAX_MSG_SIZE.
func WithMaxMessageSize(size int) Option {
	return func(p *Pipeline) {
		if size <= 0 {
			size = DEFAULT_MAX_MSG_SIZE
		}
		p.maxsize = size
	}
}

// WithWorkerName sets the pprof label value of the delivery worker.
func WithWorkerName(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.wname = name
		}
	}
}

// WithMetrics records pipeline activity into c.
func WithMetrics(c *metrics.LogCollector) Option {
	return func(p *Pipeline) { p.metrics = c }
}
