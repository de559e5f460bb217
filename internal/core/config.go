package core

import (
	"errors"
	"fmt"
	"time"
)

// Config holds configuration for a Gateway and the pool, cache, and monitor
// behind it.
//
// Concurrency contract: all fields are immutable after construction via
// NewGateway. Pool and monitor goroutines read them without synchronization,
// relying on this guarantee.
type Config struct {
	// Dialer opens engine connections for the pool. Required.
	Dialer EngineDialer

	// MaxConnections is the upper bound on concurrently open engine
	// connections. Acquire blocks when all are in use. Default: 10.
	MaxConnections int

	// ConnectionTimeout is the maximum time Acquire waits for a free
	// connection permit. Zero makes Acquire non-blocking: exhaustion is
	// reported immediately. Default: 30 seconds.
	ConnectionTimeout time.Duration

	// MaxIdleTime is how long an idle lease may sit unused before the
	// monitor closes it. Default: 5 minutes.
	MaxIdleTime time.Duration

	// HealthCheckInterval is both the monitor cadence and the idle age at
	// which a lease becomes due for a probe. Default: 60 seconds.
	HealthCheckInterval time.Duration

	// StatusTTL, StatsTTL, and ListTTL are the per-class freshness windows.
	// Defaults: 30s, 5s, 60s.
	StatusTTL time.Duration
	StatsTTL  time.Duration
	ListTTL   time.Duration

	// MaxCacheEntries bounds the cache; insertions beyond it evict the
	// least-recently-used entry. Default: 1000.
	MaxCacheEntries int

	// DisableHealthMonitor skips starting the background monitor. Intended
	// for tests and for hosts that drive HealthCheck/EvictIdle/Sweep
	// themselves.
	DisableHealthMonitor bool
}

// TTLFor returns the freshness window configured for the given data class.
// Panics on an unrecognized class; Validate guarantees the configured TTLs
// are positive, so every valid class maps to a usable window.
func (c Config) TTLFor(class DataClass) time.Duration {
	switch class {
	case ClassStatus:
		return c.StatusTTL
	case ClassStats:
		return c.StatsTTL
	case ClassList:
		return c.ListTTL
	default:
		panic(fmt.Sprintf("enginegate: unknown data class: %v", class))
	}
}

// Validate checks all Config invariants and returns an error describing
// every violation found. It uses errors.Join so callers can fix all
// problems in one pass instead of discovering them one at a time.
//
// Validate is called by NewGateway, which panics on error: invalid
// configuration is a programmer error best caught at construction time,
// in the spirit of regexp.MustCompile.
func (c Config) Validate() error {
	var errs []error

	if c.Dialer == nil {
		errs = append(errs, errors.New("engine dialer must not be nil"))
	}
	if c.MaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("max connections must be greater than 0, got %d", c.MaxConnections))
	}
	if c.ConnectionTimeout < 0 {
		errs = append(errs, fmt.Errorf("connection timeout must not be negative, got %s", c.ConnectionTimeout))
	}
	if c.MaxIdleTime <= 0 {
		errs = append(errs, fmt.Errorf("max idle time must be greater than 0, got %s", c.MaxIdleTime))
	}
	if c.HealthCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("health check interval must be greater than 0, got %s", c.HealthCheckInterval))
	}
	if c.StatusTTL <= 0 {
		errs = append(errs, fmt.Errorf("status TTL must be greater than 0, got %s", c.StatusTTL))
	}
	if c.StatsTTL <= 0 {
		errs = append(errs, fmt.Errorf("stats TTL must be greater than 0, got %s", c.StatsTTL))
	}
	if c.ListTTL <= 0 {
		errs = append(errs, fmt.Errorf("list TTL must be greater than 0, got %s", c.ListTTL))
	}
	if c.MaxCacheEntries <= 0 {
		errs = append(errs, fmt.Errorf("max cache entries must be greater than 0, got %d", c.MaxCacheEntries))
	}

	return errors.Join(errs...)
}
