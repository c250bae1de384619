/**
 * @description
 * Structured logger for the BlueWhale Terminal backend.
 * Keeps the printf-style package API used across services, backed by zap.
 * Info and below go to stdout, warnings and errors to stderr.
 *
 * @dependencies
 * - go.uber.org/zap
 */

package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	sugar = newSugar("development")
)

// Init rebuilds the process logger for the given environment.
// "production" emits JSON at info level, anything else a console encoder at debug level.
func Init(env string) {
	s := newSugar(env)
	mu.Lock()
	old := sugar
	sugar = s
	mu.Unlock()
	_ = old.Sync()
}

func newSugar(env string) *zap.SugaredLogger {
	var encoder zapcore.Encoder
	minLevel := zapcore.DebugLevel
	if env == "production" {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
		minLevel = zapcore.InfoLevel
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= minLevel && l < zapcore.WarnLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.WarnLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), low),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), high),
	)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Sugar returns the underlying logger for libraries that take a zap logger
func Sugar() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	Sugar().Debugf(format, v...)
}

// Info logs an info message to stdout
func Info(format string, v ...interface{}) {
	Sugar().Infof(format, v...)
}

// Warn logs a warning to stderr
func Warn(format string, v ...interface{}) {
	Sugar().Warnf(format, v...)
}

// Error logs an error message to stderr
func Error(format string, v ...interface{}) {
	Sugar().Errorf(format, v...)
}

// Fatal logs an error and exits
func Fatal(format string, v ...interface{}) {
	Sugar().Fatalf(format, v...)
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = Sugar().Sync()
}

// KV adapts the process logger to key/value style interfaces such as
// retryablehttp.LeveledLogger.
type KV struct{}

func (KV) Error(msg string, keysAndValues ...interface{}) { Sugar().Errorw(msg, keysAndValues...) }
func (KV) Warn(msg string, keysAndValues ...interface{})  { Sugar().Warnw(msg, keysAndValues...) }
func (KV) Info(msg string, keysAndValues ...interface{})  { Sugar().Infow(msg, keysAndValues...) }
func (KV) Debug(msg string, keysAndValues ...interface{}) { Sugar().Debugw(msg, keysAndValues...) }
