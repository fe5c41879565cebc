package logging

import (
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type Logger struct {
	*otelzap.Logger
}

type LoggerWithCtx = otelzap.LoggerWithCtx

type LoggerOption struct {
	LogLevel  string
	LogFormat string
}

type Option func(o *LoggerOption)

func WithLogLevel(logLevel string) Option {
	return func(o *LoggerOption) {
		o.LogLevel = logLevel
	}
}

// WithLogFormat selects "json" (default) or "console" encoding.
func WithLogFormat(logFormat string) Option {
	return func(o *LoggerOption) {
		o.LogFormat = logFormat
	}
}

func NewLogger(opts ...Option) (*Logger, error) {
	option := &LoggerOption{}
	for _, opt := range opts {
		opt(option)
	}

	logger, err := makeLogger(option.LogLevel, option.LogFormat)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewFromZap wraps an existing zap logger, mostly for tests.
func NewFromZap(zapLogger *zap.Logger) *Logger {
	return &Logger{Logger: otelzap.New(zapLogger, otelzap.WithMinLevel(zap.InfoLevel))}
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.WithOptions(zap.Fields(fields...))}
}

func ParseLevel(logLevel string) zap.AtomicLevel {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	case "fatal":
		return zap.NewAtomicLevelAt(zap.FatalLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

func makeLogger(logLevel, logFormat string) (*otelzap.Logger, error) {
	level := ParseLevel(logLevel)

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = level
	if strings.ToLower(logFormat) == "console" {
		zapConfig.Encoding = "console"
	}
	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return otelzap.New(zapLogger,
		otelzap.WithMinLevel(level.Level()),
	), nil
}
