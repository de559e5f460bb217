package core

import (
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger, stored as an atomic pointer so reads
// and writes are data-race-free. Named "logger" instead of "log" to avoid
// shadowing the stdlib "log" package.
//
// A nil value means no custom logger has been set; Logger() falls back to a
// cached default derived from slog.Default().
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches the default-derived logger (slog.Default() with the
// enginegate component attribute) so it is not rebuilt on every Logger()
// call. If slog.SetDefault is called after the first Logger() call, the
// cache does not pick up the change; calling SetLogger(nil) clears it so
// the next Logger() call re-derives.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the current package-level logger. If no custom logger has
// been set via SetLogger, it returns a cached logger derived from
// slog.Default() with the enginegate component attribute. Safe for
// concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := newDefaultLogger()
	// CompareAndSwap so a concurrently cached value is not overwritten.
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	// Re-load the winner's value; if a concurrent SetLogger cleared it in
	// the meantime, fall back to the locally built logger, never nil.
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// newDefaultLogger builds the default logger with the component attribute.
func newDefaultLogger() *slog.Logger {
	return slog.Default().With("component", "enginegate")
}

// SetLogger replaces the package-level logger. A nil value resets to the
// default: slog.Default() with the component attribute, re-derived on the
// next Logger() call and then cached.
//
// Safe to call concurrently with other enginegate operations.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	// Clear the cached default so the next Logger() call picks up a fresh
	// slog.Default().
	defaultLogger.Store(nil)
}
