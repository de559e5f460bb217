package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// Lease wraps one pooled engine connection. A lease is exclusively owned by
// its holder between Acquire and Release; the pool enforces this with a
// generation token.
//
// Synchronization strategy:
//   - gen is a monotonic generation counter: odd = held, even = free.
//     Release is a CAS from the acquire token to token+1, so a stale token
//     from a prior acquisition can never complete a release (ABA-safe).
//   - lastUsed is an atomic unix-nano stamp so health checks and eviction
//     can read it without taking the pool lock.
//   - conn is set at construction and never reassigned; Close is guarded
//     by closeOnce so double-closes are harmless.
type Lease struct {
	id        string
	conn      EngineClient
	createdAt time.Time

	gen      atomic.Uint64
	lastUsed atomic.Int64 // unix nanoseconds

	closeOnce sync.Once
	closeErr  error
}

// newLease wraps conn in a fresh, free lease.
func newLease(id string, conn EngineClient, now time.Time) *Lease {
	l := &Lease{
		id:        id,
		conn:      conn,
		createdAt: now,
	}
	l.lastUsed.Store(now.UnixNano())
	return l
}

// ID returns the lease's unique identifier.
func (l *Lease) ID() string {
	return l.id
}

// Client returns the engine connection. Must only be called while the lease
// is held (between Acquire and Release).
func (l *Lease) Client() EngineClient {
	return l.conn
}

// CreatedAt returns when the underlying connection was opened.
func (l *Lease) CreatedAt() time.Time {
	return l.createdAt
}

// LastUsed returns the time of the most recent release.
func (l *Lease) LastUsed() time.Time {
	return time.Unix(0, l.lastUsed.Load())
}

// IsHeld reports whether the lease is currently acquired. An odd generation
// value means held; even (including 0) means free.
func (l *Lease) IsHeld() bool {
	return l.gen.Load()%2 == 1
}

// markAcquired increments the generation counter and returns the new value
// as a release token. Each acquisition produces a unique odd token; the
// token must be passed back to tryRelease to complete the release.
func (l *Lease) markAcquired() uint64 {
	return l.gen.Add(1)
}

// tryRelease atomically advances the generation counter from the provided
// token (odd/held) to token+1 (even/free). Returns false if the token is
// stale, meaning this release belongs to a prior acquisition.
func (l *Lease) tryRelease(token uint64) bool {
	return l.gen.CompareAndSwap(token, token+1)
}

// touch stamps the last-used time.
func (l *Lease) touch(now time.Time) {
	l.lastUsed.Store(now.UnixNano())
}

// close shuts the underlying engine connection. Idempotent; subsequent
// calls return the first close's error.
func (l *Lease) close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}
