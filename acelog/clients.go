package acelog

/*
A DomainLogger is a lightweight handle bound to one domain tag, obtained with
Pipeline.NewClient. All its methods are thin wrappers over Pipeline.LogText:
they never return delivery errors, messages that can not be queued go to the
fallback sink.

Concurrency notes:
 - DomainLogger log methods are safe to call from any goroutine.
 - Lvl() mutates the handle and is meant for single-goroutine io.Writer use
   (see writer.go).
*/

// DomainLogger logs messages with a fixed domain tag.
type DomainLogger struct {
	pipeline *Pipeline // owning pipeline
	domain   string    // domain tag of every message
	curLevel Level     // current level used by Write / fmt.Fprintf helpers
}

// Constructs a DomainLogger for domain on this pipeline.
func (p *Pipeline) NewClient(domain string) *DomainLogger {
	return &DomainLogger{
		pipeline: p,
		domain:   domain,
		curLevel: LVL_INFO,
	}
}

// Returns the domain tag of the client.
func (dl *DomainLogger) Domain() string {
	return dl.domain
}

// Logs s verbatim at level. Returns true if the message was queued.
func (dl *DomainLogger) Log(level Level, s string) bool {
	return dl.pipeline.LogText(dl.domain, level, s)
}

// Logf formats and logs at level. Returns true if the message was queued.
func (dl *DomainLogger) Logf(level Level, format string, args ...any) bool {
	return dl.pipeline.LogText(dl.domain, level, dl.pipeline.formatMessage(format, args...))
}

// Debugf logs a formatted message at DEBUG level.
func (dl *DomainLogger) Debugf(format string, args ...any) bool {
	return dl.Logf(LVL_DEBUG, format, args...)
}

// Infof logs a formatted message at INFO level.
func (dl *DomainLogger) Infof(format string, args ...any) bool {
	return dl.Logf(LVL_INFO, format, args...)
}

// Warnf logs a formatted message at WARN level.
func (dl *DomainLogger) Warnf(format string, args ...any) bool {
	return dl.Logf(LVL_WARN, format, args...)
}

// Errorf logs a formatted message at ERROR level.
func (dl *DomainLogger) Errorf(format string, args ...any) bool {
	return dl.Logf(LVL_ERROR, format, args...)
}

// Fatalf logs a formatted message at FATAL level. It does not exit the
// program, the host decides what FATAL means.
func (dl *DomainLogger) Fatalf(format string, args ...any) bool {
	return dl.Logf(LVL_FATAL, format, args...)
}

// LogErr logs an error value at ERROR level.
func (dl *DomainLogger) LogErr(e error) bool {
	return dl.Log(LVL_ERROR, e.Error())
}
