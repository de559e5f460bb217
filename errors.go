package enginegate

import "github.com/xrayctl/enginegate/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrPoolExhausted is returned by operations when every connection
	// permit is in use and the connection timeout is zero (non-blocking
	// acquisition). Recoverable; the caller may retry.
	ErrPoolExhausted = core.ErrPoolExhausted

	// ErrAcquireTimeout is returned by operations when no connection permit
	// frees within the connection timeout. Recoverable; the caller may
	// retry.
	ErrAcquireTimeout = core.ErrAcquireTimeout

	// ErrConnectionFailed is returned when opening a new engine connection
	// fails (engine unreachable). Surfaced immediately, never retried
	// internally.
	ErrConnectionFailed = core.ErrConnectionFailed

	// ErrPoolClosed is returned by operations racing a Close that has
	// already shut the connection pool.
	ErrPoolClosed = core.ErrPoolClosed

	// ErrClosed is returned by every operation after Close.
	ErrClosed = core.ErrGatewayClosed

	// ErrCacheCorruption signals a cache invariant violation (the store
	// exceeding its bound after eviction, or a mistyped entry). It
	// indicates a defect, not a transient condition.
	ErrCacheCorruption = core.ErrCacheCorruption
)

// OperationError reports an engine call that the engine rejected or failed
// to complete, carrying the operation kind and target container id. Use
// errors.As to extract it, and errors.Is/Unwrap to reach the engine's own
// error underneath.
type OperationError = core.OperationError
