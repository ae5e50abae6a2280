// Package log is the process-wide structured logger. Call sites pass a
// message followed by key/value pairs:
//
//	log.Info("refresh done", "events", n, "took", d)
//	log.Error("fetch failed", err, "source", id)
package log

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     atomic.Pointer[zap.SugaredLogger]
	loggerOnce sync.Once
	level      = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger builds the global logger: console encoding on stderr with
// ISO8601 timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		)
		logger.Store(zap.New(core).Sugar())
	})
}

// SetLevel changes the minimum level at runtime.
func SetLevel(l Level) {
	initLogger()
	level.SetLevel(toZap(l))
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Replace swaps the underlying logger, e.g. for an observer in tests, and
// returns a func restoring the previous one.
func Replace(l *zap.Logger) (restore func()) {
	initLogger()
	prev := logger.Swap(l.Sugar())
	return func() { logger.Store(prev) }
}

func current() *zap.SugaredLogger {
	initLogger()
	return logger.Load()
}

func Debug(msg string, kv ...any) {
	current().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Infow(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warnw(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Errorw(msg, extended...)
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	if l := logger.Load(); l != nil {
		_ = l.Sync()
	}
}

func toZap(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
