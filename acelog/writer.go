package acelog

/*********************************************************************************
io.Writer interface implementation

The DomainLogger implements io.Writer so it can be used with fmt.Fprintf,
log.New and other writer-based helpers:
 - Lvl(level) sets the current level used by subsequent Write calls.
 - Write(p) logs the bytes at the current level (one trailing newline is
   stripped) and always returns len(p): a message that can not be queued
   goes to the fallback sink, which is not a write failure.

This allows patterns like:
  fmt.Fprintf(client.Lvl(LVL_WARN), "disk low: %d%%", percent)
*/

// Lvl sets the client's current level (used by Write/fmt.Fprintf) and returns
// the same client for convenient chaining.
func (dl *DomainLogger) Lvl(level Level) *DomainLogger {
	dl.curLevel = normLevel(level)
	return dl
}

// Write implements io.Writer. A nil or empty payload is a zero-length write
// with no error.
func (dl *DomainLogger) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	s := p
	if s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	dl.pipeline.LogText(dl.domain, dl.curLevel, string(s))
	return len(p), nil
}
