package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xrayctl/enginegate/internal/sentinel"
)

// ErrPoolClosed is returned when Acquire is called on a closed pool
// (e.g., during shutdown).
const ErrPoolClosed = sentinel.Error("connection pool is closed")

// ErrPoolExhausted is returned by a non-blocking Acquire (connection
// timeout of zero) when every permit is in use.
const ErrPoolExhausted = sentinel.Error("connection pool exhausted")

// ErrAcquireTimeout is returned by Acquire when no permit frees within the
// connection timeout.
const ErrAcquireTimeout = sentinel.Error("timed out waiting for engine connection")

// ErrConnectionFailed is returned by Acquire when opening a new engine
// connection fails. The pool never retries; the caller decides.
const ErrConnectionFailed = sentinel.Error("engine connection failed")

// Pool manages a bounded collection of reusable engine-connection leases.
// When Acquire finds no idle lease, it dials a new connection, keeping at
// most MaxConnections concurrently open. When all permits are in use, Acquire
// blocks until a lease is released, the connection timeout elapses, or the
// caller's context is canceled.
//
// It is safe for concurrent use by multiple goroutines.
type Pool struct {
	// mu protects free, live, nextIdx, and closed.
	mu sync.Mutex

	// free is a LIFO stack of idle leases. Acquire pops from the end;
	// Release pushes to the end.
	free []*Lease

	// live counts open connections: held plus idle. Invariant:
	// live <= maxSize at all times.
	live int

	// nextIdx is a monotonically increasing index used for unique lease
	// IDs. An index consumed by a failed dial is skipped, leaving a gap in
	// the sequence; harmless, since indices never serve as offsets.
	nextIdx int

	// closed is set by Close. Once set, Acquire returns ErrPoolClosed and
	// Release closes connections instead of stacking them.
	closed bool

	// dial opens a new engine connection.
	dial EngineDialer

	maxSize        int
	acquireTimeout time.Duration
	maxIdleTime    time.Duration

	// probeAfter is the idle age at which a lease becomes due for a health
	// probe.
	probeAfter time.Duration

	// sem is a buffered channel used as a counting semaphore bounding the
	// number of concurrently held leases. Pre-filled with maxSize tokens;
	// Acquire takes one, Release returns one. HealthCheck also takes one
	// per lease it probes, so connections off the stack mid-probe still
	// count against the bound.
	sem chan struct{}

	// closeCh is closed when the pool closes, unblocking Acquire calls
	// waiting on the semaphore.
	closeCh   chan struct{}
	closeOnce sync.Once

	// now is the clock, swappable in tests.
	now func() time.Time
}

// NewPool creates a Pool sized and timed by cfg. Panics if cfg is invalid;
// configuration mistakes are programmer errors caught at construction.
func NewPool(cfg Config) *Pool {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("enginegate: invalid pool config: %v", err))
	}

	p := &Pool{
		free:           make([]*Lease, 0, cfg.MaxConnections),
		dial:           cfg.Dialer,
		maxSize:        cfg.MaxConnections,
		acquireTimeout: cfg.ConnectionTimeout,
		maxIdleTime:    cfg.MaxIdleTime,
		probeAfter:     cfg.HealthCheckInterval,
		sem:            make(chan struct{}, cfg.MaxConnections),
		closeCh:        make(chan struct{}),
		now:            time.Now,
	}
	for range cfg.MaxConnections {
		p.sem <- struct{}{}
	}
	return p
}

// PoolStats is a snapshot of pool occupancy.
type PoolStats struct {
	// Idle is the number of free leases.
	Idle int
	// Live is the number of open connections, held plus idle.
	Live int
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Idle: len(p.free), Live: p.live}
}

// Acquire returns an idle lease or dials a new connection on demand.
//
// When all permits are in use, Acquire blocks until a lease is released,
// the pool closes (ErrPoolClosed), the connection timeout elapses
// (ErrAcquireTimeout), or the context is canceled (the context error). A
// zero connection timeout makes Acquire non-blocking: ErrPoolExhausted is
// returned immediately when no permit is free.
//
// A caller that abandons its wait never receives a lease afterward and
// never leaks a permit: a semaphore token is consumed only by the select
// arm that wins it.
func (p *Pool) Acquire(ctx context.Context) (*Lease, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context done while waiting for engine connection: %w", err)
	}

	select {
	case <-p.sem:
		// Fast path: a permit was free.
	default:
		if p.acquireTimeout <= 0 {
			return nil, 0, ErrPoolExhausted
		}
		timer := time.NewTimer(p.acquireTimeout)
		defer timer.Stop()
		select {
		case <-p.sem:
		case <-timer.C:
			return nil, 0, ErrAcquireTimeout
		case <-p.closeCh:
			return nil, 0, ErrPoolClosed
		case <-ctx.Done():
			return nil, 0, fmt.Errorf("context done while waiting for engine connection: %w", ctx.Err())
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.returnSlot()
		return nil, 0, ErrPoolClosed
	}

	// LIFO: pop the most recently released lease if one is idle.
	if n := len(p.free); n > 0 {
		lease := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		token := lease.markAcquired()
		return lease, token, nil
	}

	idx := p.nextIdx
	p.nextIdx++
	p.mu.Unlock()

	// Dial outside the lock; opening a connection is I/O.
	conn, err := p.dial(ctx)
	if err != nil {
		p.returnSlot()
		return nil, 0, fmt.Errorf("open engine connection: %w: %w", ErrConnectionFailed, err)
	}

	lease := newLease(fmt.Sprintf("conn-%d-%08x", idx, rand.Uint32()), conn, p.now()) //nolint:gosec // lease IDs need uniqueness, not cryptographic strength

	// Re-lock to account for the connection and recheck closed.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.returnSlot()
		// Pool closed while dialing. Clean up the fresh connection.
		if closeErr := lease.close(); closeErr != nil {
			Logger().Warn("failed to close connection opened after pool close",
				"id", lease.ID(), "error", closeErr)
		}
		return nil, 0, ErrPoolClosed
	}
	p.live++
	p.mu.Unlock()

	token := lease.markAcquired()
	return lease, token, nil
}

// Release puts a lease back on the idle stack and stamps its last-used
// time. The connection stays open. The token must match the value returned
// by Acquire; a stale token means a double release and panics.
//
// If the pool has been closed, the connection is closed instead of being
// returned to the idle stack.
func (p *Pool) Release(l *Lease, token uint64) {
	if !l.tryRelease(token) {
		panic("enginegate: double release of lease " + l.ID())
	}
	l.touch(p.now())

	p.mu.Lock()
	if p.closed {
		p.live--
		p.mu.Unlock()
		if err := l.close(); err != nil {
			Logger().Warn("failed to close released connection after pool close",
				"id", l.ID(), "error", err)
		}
		p.returnSlot()
		return
	}
	p.free = append(p.free, l)
	p.mu.Unlock()

	p.returnSlot()
}

// HealthCheck probes idle leases that have sat unused longer than the
// health-check interval. A due lease is taken off the idle stack together
// with a connection permit, so a concurrent Acquire can neither receive a
// lease mid-probe nor dial past the connection bound while probes are in
// flight. Leases that fail the probe are closed; survivors return to the
// stack. A due lease for which no permit is free is left for the next
// cycle.
//
// Returns the number of leases probed and the number closed.
func (p *Pool) HealthCheck(ctx context.Context) (probed, removed int) {
	cutoff := p.now().Add(-p.probeAfter)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, 0
	}
	var due []*Lease
	keep := p.free[:0]
	for _, l := range p.free {
		if l.LastUsed().Before(cutoff) {
			select {
			case <-p.sem:
				due = append(due, l)
				continue
			default:
				// Every permit is taken; keep the lease and retry next
				// cycle.
			}
		}
		keep = append(keep, l)
	}
	p.free = keep
	p.mu.Unlock()

	if len(due) == 0 {
		return 0, 0
	}

	// Probe in parallel; each probe is an independent engine round trip.
	healthy := make([]*Lease, len(due))
	var g errgroup.Group
	for i, l := range due {
		g.Go(func() error {
			if err := l.Client().Ping(ctx); err != nil {
				Logger().Warn("health probe failed, closing connection",
					"id", l.ID(), "error", err)
				p.retire(l)
				return nil
			}
			healthy[i] = l
			return nil
		})
	}
	_ = g.Wait() // probe goroutines always return nil; failures are handled inline

	var orphaned []*Lease
	p.mu.Lock()
	for _, l := range healthy {
		if l == nil {
			removed++
			continue
		}
		if p.closed {
			// Pool closed while probing; the survivor has no stack to
			// return to.
			p.live--
			orphaned = append(orphaned, l)
			continue
		}
		p.free = append(p.free, l)
	}
	p.mu.Unlock()

	for _, l := range orphaned {
		p.closeLease(l)
	}
	// Survivors are back on the stack; hand the probe permits to any
	// waiting Acquire.
	for range due {
		p.returnSlot()
	}
	return len(due), removed
}

// EvictIdle closes idle leases whose last use is older than MaxIdleTime and
// returns the number closed.
func (p *Pool) EvictIdle() int {
	cutoff := p.now().Add(-p.maxIdleTime)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0
	}
	var evict []*Lease
	keep := p.free[:0]
	for _, l := range p.free {
		if l.LastUsed().Before(cutoff) {
			evict = append(evict, l)
		} else {
			keep = append(keep, l)
		}
	}
	p.free = keep
	p.mu.Unlock()

	for _, l := range evict {
		p.retire(l)
	}
	return len(evict)
}

// retire closes a lease's connection and decrements the live count. The
// lease must already be off the idle stack and unheld.
func (p *Pool) retire(l *Lease) {
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
	p.closeLease(l)
}

// closeLease closes the lease's connection, logging failures.
func (p *Pool) closeLease(l *Lease) {
	if err := l.close(); err != nil {
		Logger().Warn("failed to close engine connection", "id", l.ID(), "error", err)
	}
}

// Close marks the pool closed, closes every idle connection, and unblocks
// any Acquire waiting on the semaphore. Held leases are closed when their
// holders release them. Safe to call multiple times.
//
// Returns the joined close errors of the idle connections.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.free
	p.free = nil
	p.live -= len(idle)
	p.mu.Unlock()

	p.closeOnce.Do(func() { close(p.closeCh) })

	var errs []error
	for _, l := range idle {
		if err := l.close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection %s: %w", l.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// returnSlot returns a semaphore token, unblocking a waiting Acquire.
//
// Uses a non-blocking send: after Close the channel may already be at
// capacity because no Acquire drains it, so a blocking send would hang.
func (p *Pool) returnSlot() {
	select {
	case p.sem <- struct{}{}:
	default:
		// Semaphore full. Expected after Close; during normal operation it
		// means more releases than acquires, which is accounting corruption.
		select {
		case <-p.closeCh:
			Logger().Debug("returnSlot: semaphore full after pool close, token dropped (expected)")
		default:
			panic(fmt.Sprintf("enginegate: returnSlot: semaphore full during normal operation (maxSize=%d)", p.maxSize))
		}
	}
}
