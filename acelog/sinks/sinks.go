// Package sinks adapts third-party loggers to the acelog native fallback
// sink.
package sinks

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abyssdigger/acebridge/acelog"
)

const TAG_FIELD = "tag"

// ZapSink writes fallback lines through a zap logger. FATAL lines are logged
// at zap's error level so the sink never exits the process.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps logger; nil uses zap.NewNop().
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

// NewZapDevelopmentSink builds a console zap logger at debug level.
func NewZapDevelopmentSink() (*ZapSink, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapSink(logger), nil
}

func (s *ZapSink) Write(level acelog.Level, tag, msg string) {
	if ce := s.logger.Check(ZapLevel(level), msg); ce != nil {
		ce.Write(zap.String(TAG_FIELD, tag))
	}
}

// Sync flushes buffered zap output.
func (s *ZapSink) Sync() error {
	return s.logger.Sync()
}

// ZapLevel maps a pipeline level to a zap level.
func ZapLevel(level acelog.Level) zapcore.Level {
	switch level {
	case acelog.LVL_DEBUG:
		return zapcore.DebugLevel
	case acelog.LVL_INFO:
		return zapcore.InfoLevel
	case acelog.LVL_WARN:
		return zapcore.WarnLevel
	case acelog.LVL_ERROR, acelog.LVL_FATAL:
		return zapcore.ErrorLevel
	}
	return zapcore.DebugLevel
}

// LogrusSink writes fallback lines through a logrus logger. FATAL lines are
// logged at logrus' error level so the sink never exits the process.
type LogrusSink struct {
	logger *logrus.Logger
}

// NewLogrusSink wraps logger; nil uses logrus.StandardLogger().
func NewLogrusSink(logger *logrus.Logger) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusSink{logger: logger}
}

func (s *LogrusSink) Write(level acelog.Level, tag, msg string) {
	s.logger.WithField(TAG_FIELD, tag).Log(LogrusLevel(level), msg)
}

// LogrusLevel maps a pipeline level to a logrus level.
func LogrusLevel(level acelog.Level) logrus.Level {
	switch level {
	case acelog.LVL_DEBUG:
		return logrus.DebugLevel
	case acelog.LVL_INFO:
		return logrus.InfoLevel
	case acelog.LVL_WARN:
		return logrus.WarnLevel
	case acelog.LVL_ERROR, acelog.LVL_FATAL:
		return logrus.ErrorLevel
	}
	return logrus.DebugLevel
}

var (
	_ acelog.Sink = (*ZapSink)(nil)
	_ acelog.Sink = (*LogrusSink)(nil)
)
