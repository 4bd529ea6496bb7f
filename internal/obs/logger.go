// Package obs bundles the ambient observability stack shared by the store,
// both lobby listeners and the room process: structured logging (zap),
// metrics (prometheus client_golang), tracing (otel), and a tiny ops-only
// HTTP surface (gin) for health/metrics scraping. None of this carries
// business traffic — every spec action stays on the raw framed TCP
// protocol in internal/wire.
package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a process-scoped zap.Logger, levelled from LOG_LEVEL
// (debug|info|warn|error, default info).
func NewLogger(component, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("component", component)), nil
}
