package engine

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the engine's logger instance. It uses a no-op logger
// by default; embed a host process calls ConfigureLogger before first
// use to capture GC, allocator, and coroutine trace output.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// ConfigureLogger swaps in a real logger. Must be called before the
// first call to Logger (normally right after process startup); calling
// it later races with any goroutine already holding a reference from
// Logger().
func ConfigureLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	logger = l
}

var debug = false

func debugf(format string, args ...any) {
	if debug {
		Logger().Sugar().Debugf(format, args...)
	}
}
