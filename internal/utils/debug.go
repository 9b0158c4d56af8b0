package utils

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.RWMutex
	logger   = zap.NewNop().Sugar()
)

// InitLogger configures the process logger. Entries go to stderr and, when
// logPath is non-empty, to that file as JSON. verbose lowers the level to debug.
func InitLogger(logPath string, verbose bool) error {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
	}

	SetLogger(zap.New(zapcore.NewTee(cores...)))
	return nil
}

// SetLogger replaces the process logger. Tests use it with zaptest/observer loggers.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l.Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = current().Sync()
}

func current() *zap.SugaredLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Debug writes a debug-level message
func Debug(format string, args ...any) {
	current().Debugf(format, args...)
}

// Info writes an info-level message
func Info(format string, args ...any) {
	current().Infof(format, args...)
}

// Warn reports a degraded but recoverable condition
func Warn(format string, args ...any) {
	current().Warnf(format, args...)
}

// Error reports a condition that stops the installation
func Error(format string, args ...any) {
	current().Errorf(format, args...)
}

// ConvertBytesToHumanReadable formats a byte count (e.g. "1.2 MB")
func ConvertBytesToHumanReadable(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}
