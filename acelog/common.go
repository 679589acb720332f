package acelog

/*
Defines the core data types of the async log pipeline:
  - basetype and the byte-sized enums built on it (levels, pipeline states,
    shutdown policies)
  - logTask: the immutable unit queued for the delivery worker
  - Pipeline: the service object that owns the host binding, the task queue,
    the fallback sink and the worker goroutine

Also defines package-wide constants and helpers:
  - default values
  - level name maps used by sinks and metrics labels
  - normalization and panic description helpers
*/

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/abyssdigger/acebridge/metrics"
)

type basetype byte // underlying byte-sized representation used for enums

type Level basetype // Log severity (alias for byte)
type pipeState basetype
type ShutdownPolicy basetype

// logTask is the unit enqueued for the worker. Never mutated after creation.
type logTask struct {
	pushed time.Time // when the task was queued
	domain string    // domain tag (DOMAIN_*)
	msg    string    // fully formatted message
	level  Level
}

// Pipeline decouples log call sites from the host logger. It contains
// synchronization primitives, the host binding, the task queue, the fallback
// sink and the worker lifecycle state.
//
// A Pipeline is created stopped; the worker runs between RegisterLogger and
// UnregisterLogger.
type Pipeline struct {
	sync struct {
		lcycMtx sync.Mutex     // serializes RegisterLogger/UnregisterLogger
		bindMtx sync.RWMutex   // guards binding (shared for delivery, exclusive for changes)
		queuMtx sync.Mutex     // guards queue and state
		fbckMtx sync.RWMutex   // guards fallback sink
		chngMtx sync.RWMutex   // guards general configuration changes
		waitEnd sync.WaitGroup // tracks worker goroutine lifecycle
	}
	wake    *sync.Cond     // signalled on enqueue and on stop (uses queuMtx)
	binding *loggerBinding // nil when no host logger is registered
	queue   *logQueue      // created lazily on first registration
	fallbck Sink
	metrics *metrics.LogCollector
	wname   string // worker name used in pprof labels
	maxsize int    // maximum formatted message size in bytes
	state   pipeState
	policy  ShutdownPolicy
	level   Level // minimal level delivered to the host logger
}

/////////////////////////////////////////////////////////////////////////////////////////

const (
	// Severity levels. The trailing _LVL_MAX_for_checks_only is used as an
	// exclusive upper bound for normalization checks.
	LVL_UNKNOWN Level = iota
	LVL_DEBUG
	LVL_INFO
	LVL_WARN
	LVL_ERROR
	LVL_FATAL
	_LVL_MAX_for_checks_only
)

const (
	// Domain tags classifying the origin of a log line.
	DOMAIN_FRAMEWORK = "Ace"
	DOMAIN_JS_APP    = "JsApp"
)

const (
	// Default values for New()
	DEFAULT_MIN_LEVEL    = LVL_DEBUG
	DEFAULT_MAX_MSG_SIZE = 4096 // formatted messages are truncated to this many bytes
	DEFAULT_QUEUE_CAP    = 64   // initial queue capacity (the queue grows unbounded)
	DEFAULT_WORKER_NAME  = "ace_log_worker"
	DEFAULT_DELIMITER    = ":"
	DIAGNOSTIC_TAG       = "acelog" // tag of the pipeline's own diagnostics
)

const (
	// ANSI colored text fragments prefix/suffix used when colors are requested.
	// For a colored piece of text the sequence will be:
	// ANSI_COL_PRFX + colorSpec + ANSI_COL_SUFX + text + ANSI_COL_RESET
	ANSI_COL_PRFX  = "\033["
	ANSI_COL_SUFX  = "m"
	ANSI_COL_RESET = ANSI_COL_PRFX + "0" + ANSI_COL_SUFX
)

const (
	// Pipeline worker lifecycle states.
	_STATE_UNKNOWN pipeState = iota
	_STATE_ACTIVE
	_STATE_STOPPING
	_STATE_STOPPED
)

const (
	// What the worker does with queued tasks when it is stopped.
	DROP_PENDING  ShutdownPolicy = iota // discard queued tasks (default)
	DRAIN_PENDING                       // deliver queued tasks before exiting
	_POLICY_MAX_for_checks_only
)

const (
	// Error messages used across pipeline operations (used for testing).
	_ERROR_MESSAGE_HOST_IS_NIL     = "host logger is nil"
	_ERROR_MESSAGE_PIPELINE_IS_NIL = "pipeline is nil"
	_ERROR_UNKNOWN_PANIC_TEXT      = "[no panic description]"
)

// Reasons used as metrics labels.
const (
	_REASON_UNBOUND     = "unbound"
	_REASON_BELOW_LEVEL = "below_level"
	_REASON_STOPPED     = "stopped"
	_REASON_NO_METHOD   = "no_method"
	_REASON_FAILED      = "failed"
)

/////////////////////////////////////////////////////////////////////////////////////////

// LevelMap is a fixed-size array with one entry per level. Used for level
// names and colors.
type LevelMap [_LVL_MAX_for_checks_only]string

// Predefined log level short names map (for WriterSink prefix)
var LevelShortNames = &LevelMap{
	"???", //LVL_UNKNOWN
	"D",   //LVL_DEBUG
	"I",   //LVL_INFO
	"W",   //LVL_WARN
	"E",   //LVL_ERROR
	"F",   //LVL_FATAL
}

// Predefined log level full names map (for WriterSink prefix and metrics labels)
var LevelFullNames = &LevelMap{
	"UNKNOWN", //LVL_UNKNOWN
	"DEBUG",   //LVL_DEBUG
	"INFO",    //LVL_INFO
	"WARN",    //LVL_WARN
	"ERROR",   //LVL_ERROR
	"FATAL",   //LVL_FATAL
}

// Predefined color map for ANSI terminal (for WriterSink colors)
var LevelColorOnBlackMap = &LevelMap{
	"9;90",     //LVL_UNKNOWN
	"0;90",     //LVL_DEBUG
	"0;97",     //LVL_INFO
	"0;33",     //LVL_WARN
	"0;91",     //LVL_ERROR
	"101;1;33", //LVL_FATAL
}

// String returns the full level name ("UNKNOWN" for invalid values).
func (level Level) String() string {
	return LevelFullNames[normLevel(level)]
}

// Generic byte normalization helper.
func norm_byte[T ~byte](val, overlimit, def T) T {
	if val < overlimit {
		return val
	} else {
		return def
	}
}

// Ensures a provided Level is within the valid range
func normLevel(level Level) Level {
	return norm_byte(level, _LVL_MAX_for_checks_only, LVL_UNKNOWN)
}

// Ensures a provided ShutdownPolicy is within the valid range
func normPolicy(policy ShutdownPolicy) ShutdownPolicy {
	return norm_byte(policy, _POLICY_MAX_for_checks_only, DROP_PENDING)
}

// Converts a panic value into a compact readable string (used when
// translating panics into errors or fallback messages)
func panicDesc(panic any) (errtext string) {
	switch v := panic.(type) {
	case string:
		errtext = ": `" + v + "`"
	case error:
		errtext = ": (error) `" + v.Error() + "`"
	default:
		errtext = " " + _ERROR_UNKNOWN_PANIC_TEXT
	}
	return errtext
}

// Cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncateUTF8(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
