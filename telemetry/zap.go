package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger wraps a *zap.SugaredLogger for the Logger interface.
type ZapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger constructs a Logger backed by zap. prod selects the
// production JSON encoder; otherwise the human-readable development
// encoder is used.
func NewZapLogger(prod bool) (Logger, error) {
	var cfg zap.Config
	if prod {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{l: base.Sugar()}, nil
}

// Debug emits a debug-level log message with structured key-value pairs.
func (z *ZapLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	z.l.Debugw(msg, keyvals...)
}

// Info emits an info-level log message with structured key-value pairs.
func (z *ZapLogger) Info(_ context.Context, msg string, keyvals ...any) {
	z.l.Infow(msg, keyvals...)
}

// Warn emits a warning-level log message with structured key-value pairs.
func (z *ZapLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	z.l.Warnw(msg, keyvals...)
}

// Error emits an error-level log message with structured key-value pairs.
func (z *ZapLogger) Error(_ context.Context, msg string, keyvals ...any) {
	z.l.Errorw(msg, keyvals...)
}
