package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.Logger = zap.NewNop()
)

// Init builds the global logger. debug switches to a development console encoder at debug level.
func Init(debug bool) {
	var encoder zapcore.Encoder
	level := zapcore.InfoLevel
	if debug {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
		level = zapcore.DebugLevel
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
		newBufferCore(logBuffer, level),
	)

	mu.Lock()
	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	mu.Unlock()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = current().Sync()
}

// L returns the underlying zap logger for callers that need With().
func L() *zap.Logger {
	return current()
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug(msg string, fields ...zap.Field) {
	current().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	current().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	current().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	current().Error(msg, fields...)
}

// Fatal logs and exits. Only startup paths may call it.
func Fatal(msg string, fields ...zap.Field) {
	current().Fatal(msg, fields...)
}
