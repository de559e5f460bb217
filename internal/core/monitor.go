package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Monitor periodically sweeps the pool and cache: health-probing idle
// leases, evicting leases idle past their limit, and removing expired cache
// entries. It runs independently of request paths; a failing cycle is
// logged and isolated, never crashing the owning process or blocking
// callers.
type Monitor struct {
	interval time.Duration
	pool     *Pool
	cache    *Cache

	started  atomic.Bool
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a Monitor sweeping pool and cache every interval.
// Panics on a non-positive interval or nil pool/cache; these are programmer
// errors caught at construction.
func NewMonitor(interval time.Duration, pool *Pool, cache *Cache) *Monitor {
	if interval <= 0 {
		panic("enginegate: monitor interval must be greater than 0")
	}
	if pool == nil || cache == nil {
		panic("enginegate: monitor pool and cache must not be nil")
	}
	return &Monitor{
		interval: interval,
		pool:     pool,
		cache:    cache,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Subsequent calls are no-ops.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run()
}

// Stop terminates the sweep loop and waits for an in-flight cycle to
// finish. Safe to call multiple times, and safe to call on a monitor that
// was never started.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	if m.started.Load() {
		<-m.done
	}
}

// run is the sweep loop. It exits when stopCh closes.
func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep executes one maintenance cycle. Panics are recovered and logged so
// a defective cycle cannot take down the monitor or its owner.
func (m *Monitor) sweep() {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("health monitor cycle panicked", "panic", r)
		}
	}()

	// Bound the probe round trips so a hung engine cannot stall the loop
	// past the next tick.
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	probed, removed := m.pool.HealthCheck(ctx)
	evicted := m.pool.EvictIdle()
	swept := m.cache.Sweep()

	if probed > 0 || evicted > 0 || swept > 0 {
		stats := m.pool.Stats()
		Logger().Debug("health monitor cycle",
			"probed", probed,
			"unhealthy", removed,
			"evicted", evicted,
			"cache_swept", swept,
			"pool_idle", stats.Idle,
			"pool_live", stats.Live,
		)
	}
}
