package log

import "sync/atomic"

// process holds the logger installed by the command layer. Packages that
// are handed no logger (classifiers, Conduit client defaults) log through it.
var process atomic.Pointer[Logger]

// SetDefaultLogger installs logger as the process-wide default. Nil restores
// the warning-level stderr logger.
func SetDefaultLogger(logger *Logger) {
	process.Store(logger)
}

// DefaultLogger returns the process-wide logger, creating the stderr
// fallback on first use.
func DefaultLogger() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	fallback := Default()
	if process.CompareAndSwap(nil, fallback) {
		return fallback
	}
	return process.Load()
}
