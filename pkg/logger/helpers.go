package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed remote call at a level matching its status
func LogRequest(l Logger, method, endpoint string, statusCode int, durationMS float64) {
	fields := map[string]interface{}{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": durationMS,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("remote call failed", fields)
	case statusCode >= 400:
		l.WarnWithFields("remote call rejected", fields)
	default:
		l.DebugWithFields("remote call completed", fields)
	}
}

// LogThrottle records that the platform asked us to slow down and results were cut short
func LogThrottle(l Logger, operation string, collected int) {
	l.WithFields(map[string]interface{}{
		"operation": operation,
		"collected": collected,
		"action":    "truncated",
	}).Warn("throttled by remote, keeping partial results")
}

// LogExport records a report sink outcome
func LogExport(l Logger, sink, path string, err error) {
	if err != nil {
		l.WithError(err).WarnWithFields("export failed", map[string]interface{}{"sink": sink, "path": path})
		return
	}
	l.DebugWithFields("export written", map[string]interface{}{"sink": sink, "path": path})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (n nopLogger) Debug(string)                                     {}
func (n nopLogger) Info(string)                                      {}
func (n nopLogger) Warn(string)                                      {}
func (n nopLogger) Error(string)                                     {}
func (n nopLogger) WithField(string, interface{}) Logger             { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger         { return n }
func (n nopLogger) WithError(error) Logger                           { return n }
func (n nopLogger) WithContext(context.Context) Logger               { return n }
func (n nopLogger) DebugWithFields(string, map[string]interface{})   {}
func (n nopLogger) InfoWithFields(string, map[string]interface{})    {}
func (n nopLogger) WarnWithFields(string, map[string]interface{})    {}
func (n nopLogger) ErrorWithFields(string, map[string]interface{})   {}
func (n nopLogger) GetZerolog() *zerolog.Logger                      { l := zerolog.Nop(); return &l }
