package enginegate

import "time"

// Default configuration values for New.
// These constants are exported so callers can build custom configurations
// relative to them (e.g., 2 * DefaultConnectionTimeout).
const (
	// DefaultMaxConnections is the upper bound on concurrently open engine
	// connections. Operations block when all are in use and unblock when
	// one is released.
	DefaultMaxConnections = 10

	// DefaultConnectionTimeout is the maximum time an operation waits for a
	// free connection permit before failing with ErrAcquireTimeout.
	DefaultConnectionTimeout = 30 * time.Second

	// DefaultMaxIdleTime is how long an idle connection may sit unused
	// before the health monitor closes it.
	DefaultMaxIdleTime = 5 * time.Minute

	// DefaultHealthCheckInterval is the cadence of the background monitor:
	// pool health probes, idle eviction, and cache sweeps.
	DefaultHealthCheckInterval = 60 * time.Second

	// DefaultStatusTTL is the freshness window for status queries. Status
	// changes rarely outside of explicit mutations, which invalidate it.
	DefaultStatusTTL = 30 * time.Second

	// DefaultStatsTTL is the freshness window for stats queries. Stats are
	// high-churn, so the window is short.
	DefaultStatsTTL = 5 * time.Second

	// DefaultListTTL is the freshness window for list queries. List
	// membership changes only on create/delete.
	DefaultListTTL = 60 * time.Second

	// DefaultMaxCacheEntries is the cache size bound; insertions beyond it
	// evict the least-recently-used entry.
	DefaultMaxCacheEntries = 1000
)
