// Package log writes JSON log lines for a decode or encode session.
//
// Every entry carries the session_id given at construction plus any
// fields bound with With. Per-call fields are nested under "fields".
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a session-scoped structured logger.
type Logger struct {
	zap *zap.Logger
}

var levelNames = map[string]zapcore.Level{
	"":        zapcore.InfoLevel,
	"info":    zapcore.InfoLevel,
	"debug":   zapcore.DebugLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
}

// ParseLevel maps debug|info|warn|error to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", s)
}

// NewLogger logs to stderr.
func NewLogger(sessionID string, level zapcore.Level) *Logger {
	return NewLoggerWithWriter(sessionID, level, os.Stderr)
}

// NewLoggerWithWriter logs to w. An empty sessionID omits the field.
func NewLoggerWithWriter(sessionID string, level zapcore.Level, w io.Writer) *Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	z := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
	if sessionID != "" {
		z = z.With(zap.String("session_id", sessionID))
	}
	return &Logger{zap: z}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// With binds fields to every later entry as top-level keys.
func (l *Logger) With(fields map[string]any) *Logger {
	bound := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		bound = append(bound, zap.Any(k, v))
	}
	return &Logger{zap: l.zap.With(bound...)}
}

func (l *Logger) write(level zapcore.Level, message string, fields map[string]any) {
	ce := l.zap.Check(level, message)
	if ce == nil {
		return
	}
	if len(fields) == 0 {
		ce.Write()
		return
	}
	ce.Write(zap.Any("fields", fields))
}

func (l *Logger) Debug(message string, fields map[string]any) {
	l.write(zapcore.DebugLevel, message, fields)
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.write(zapcore.InfoLevel, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.write(zapcore.WarnLevel, message, fields)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.write(zapcore.ErrorLevel, message, fields)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
