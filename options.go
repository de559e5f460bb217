package enginegate

import (
	"fmt"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("enginegate: %s must be greater than 0, got %v", name, v))
	}
}

// Option configures a Gateway during construction via New.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (non-positive sizes or
// durations). These panics are intentional: option values are typically
// compile-time constants, so an invalid value indicates a programmer error
// rather than a runtime condition. The pattern mirrors [regexp.MustCompile]
// instead of returning errors that would be universally fatal anyway.
type Option func(*gatewayConfig)

// WithMaxConnections sets the upper bound on concurrently open engine
// connections. Operations block when all are in use and unblock when one
// is released.
//
// Default: 10.
//
// Panics if n <= 0.
func WithMaxConnections(n int) Option {
	requirePositive("max connections", n)
	return func(c *gatewayConfig) {
		c.MaxConnections = n
	}
}

// WithConnectionTimeout sets how long an operation waits for a free
// connection permit before failing with ErrAcquireTimeout. A zero duration
// makes acquisition non-blocking: exhaustion fails immediately with
// ErrPoolExhausted.
//
// Default: 30 seconds.
//
// Panics if d < 0.
func WithConnectionTimeout(d time.Duration) Option {
	if d < 0 {
		panic(fmt.Sprintf("enginegate: connection timeout must not be negative, got %v", d))
	}
	return func(c *gatewayConfig) {
		c.ConnectionTimeout = d
	}
}

// WithMaxIdleTime sets how long an idle connection may sit unused before
// the health monitor closes it.
//
// Default: 5 minutes.
//
// Panics if d <= 0.
func WithMaxIdleTime(d time.Duration) Option {
	requirePositive("max idle time", d)
	return func(c *gatewayConfig) {
		c.MaxIdleTime = d
	}
}

// WithHealthCheckInterval sets the cadence of the background monitor, which
// probes idle connections, evicts those idle too long, and sweeps expired
// cache entries. The same duration is the idle age at which a connection
// becomes due for a probe.
//
// Default: 60 seconds.
//
// Panics if d <= 0.
func WithHealthCheckInterval(d time.Duration) Option {
	requirePositive("health check interval", d)
	return func(c *gatewayConfig) {
		c.HealthCheckInterval = d
	}
}

// WithStatusTTL sets the freshness window for status queries.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithStatusTTL(d time.Duration) Option {
	requirePositive("status TTL", d)
	return func(c *gatewayConfig) {
		c.StatusTTL = d
	}
}

// WithStatsTTL sets the freshness window for stats queries.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithStatsTTL(d time.Duration) Option {
	requirePositive("stats TTL", d)
	return func(c *gatewayConfig) {
		c.StatsTTL = d
	}
}

// WithListTTL sets the freshness window for list queries.
//
// Default: 60 seconds.
//
// Panics if d <= 0.
func WithListTTL(d time.Duration) Option {
	requirePositive("list TTL", d)
	return func(c *gatewayConfig) {
		c.ListTTL = d
	}
}

// WithMaxCacheEntries sets the cache size bound. Insertions beyond the
// bound evict the least-recently-used entry first.
//
// Default: 1000.
//
// Panics if n <= 0.
func WithMaxCacheEntries(n int) Option {
	requirePositive("max cache entries", n)
	return func(c *gatewayConfig) {
		c.MaxCacheEntries = n
	}
}

// WithDialer sets the factory for engine connections, replacing the
// default Docker dialer. Use it to target a non-default engine endpoint or
// to inject a test double.
//
// Panics if dial is nil.
func WithDialer(dial EngineDialer) Option {
	if dial == nil {
		panic("enginegate: dialer must not be nil")
	}
	return func(c *gatewayConfig) {
		c.Dialer = dial
	}
}

// WithoutHealthMonitor disables the background monitor. Intended for tests
// and for hosts that schedule maintenance themselves; without the monitor,
// idle connections are never probed or evicted and expired cache entries
// are only removed lazily on read.
func WithoutHealthMonitor() Option {
	return func(c *gatewayConfig) {
		c.DisableHealthMonitor = true
	}
}
