package acelog

/*
Host logger binding.

The host logger is an opaque value owned by the embedding environment. It may
expose any subset of the five severity-specific delivery methods below; a
method it lacks is resolved to nil at registration and the matching severity
is silently skipped at delivery time. A host can also hand out delivery
functions explicitly by implementing LevelResolver (see HostFuncs).

Each delivery method receives the domain tag and the formatted message. An
error returned from it (or a panic raised in it) is reported to the fallback
sink and the log line is dropped.
*/

// HostLogger is the host-side logger object passed to RegisterLogger.
type HostLogger = any

// DeliverFunc delivers one formatted message with its domain tag.
type DeliverFunc func(tag, msg string) error

type DebugDeliverer interface{ Debug(tag, msg string) error }
type InfoDeliverer interface{ Info(tag, msg string) error }
type WarnDeliverer interface{ Warn(tag, msg string) error }
type ErrorDeliverer interface{ Error(tag, msg string) error }
type FatalDeliverer interface{ Fatal(tag, msg string) error }

// LevelResolver takes precedence over the per-level interfaces when a host
// implements it. Returning nil means the level is not supported.
type LevelResolver interface {
	Deliverer(level Level) DeliverFunc
}

// HostFuncs is a LevelResolver built from plain functions; nil fields are
// unsupported levels.
type HostFuncs struct {
	DebugFn DeliverFunc
	InfoFn  DeliverFunc
	WarnFn  DeliverFunc
	ErrorFn DeliverFunc
	FatalFn DeliverFunc
}

func (h *HostFuncs) Deliverer(level Level) DeliverFunc {
	if h == nil {
		return nil
	}
	switch level {
	case LVL_DEBUG:
		return h.DebugFn
	case LVL_INFO:
		return h.InfoFn
	case LVL_WARN:
		return h.WarnFn
	case LVL_ERROR:
		return h.ErrorFn
	case LVL_FATAL:
		return h.FatalFn
	}
	return nil
}

// loggerBinding holds the registered host and its resolved delivery functions.
type loggerBinding struct {
	host    HostLogger
	deliver [_LVL_MAX_for_checks_only]DeliverFunc
}

// resolveBinding looks up the delivery function for every level. Missing
// methods are not an error.
func resolveBinding(host HostLogger) *loggerBinding {
	b := &loggerBinding{host: host}
	if r, ok := host.(LevelResolver); ok {
		for level := LVL_DEBUG; level < _LVL_MAX_for_checks_only; level++ {
			b.deliver[level] = r.Deliverer(level)
		}
		return b
	}
	if h, ok := host.(DebugDeliverer); ok {
		b.deliver[LVL_DEBUG] = h.Debug
	}
	if h, ok := host.(InfoDeliverer); ok {
		b.deliver[LVL_INFO] = h.Info
	}
	if h, ok := host.(WarnDeliverer); ok {
		b.deliver[LVL_WARN] = h.Warn
	}
	if h, ok := host.(ErrorDeliverer); ok {
		b.deliver[LVL_ERROR] = h.Error
	}
	if h, ok := host.(FatalDeliverer); ok {
		b.deliver[LVL_FATAL] = h.Fatal
	}
	return b
}

// deliverer returns the delivery function for level or nil.
func (b *loggerBinding) deliverer(level Level) DeliverFunc {
	if b == nil {
		return nil
	}
	return b.deliver[normLevel(level)]
}

// resolved reports how many levels have a delivery function.
func (b *loggerBinding) resolved() (n int) {
	for _, f := range b.deliver {
		if f != nil {
			n++
		}
	}
	return
}
