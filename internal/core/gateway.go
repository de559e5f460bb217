package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/xrayctl/enginegate/internal/sentinel"
)

// ErrGatewayClosed is returned by every operation after Close.
const ErrGatewayClosed = sentinel.Error("gateway is closed")

// Gateway mediates all access to the container engine. Reads are served
// from the class-partitioned cache when fresh; misses acquire a connection
// lease, call the engine, cache the result under the class TTL, and release
// the lease. Mutations acquire, call, release, then invalidate every cached
// class for the target container.
//
// A held lease is released on every exit path, success or failure, before
// any method returns. Engine errors are never cached.
//
// It is safe for concurrent use by multiple goroutines.
type Gateway struct {
	cfg     Config
	pool    *Pool
	cache   *Cache
	monitor *Monitor // nil when the health monitor is disabled

	closed atomic.Bool
}

// NewGateway creates a Gateway with the provided configuration and starts
// its health monitor unless cfg.DisableHealthMonitor is set. This performs
// no engine I/O; connections are dialed on first acquisition.
//
// Panics if cfg.Validate() reports any errors, in the spirit of
// regexp.MustCompile: invalid configuration is a programmer error caught
// at construction time.
func NewGateway(cfg Config) *Gateway {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("enginegate: invalid gateway config: %v", err))
	}

	g := &Gateway{
		cfg:   cfg,
		pool:  NewPool(cfg),
		cache: NewCache(cfg.MaxCacheEntries),
	}
	if !cfg.DisableHealthMonitor {
		g.monitor = NewMonitor(cfg.HealthCheckInterval, g.pool, g.cache)
		g.monitor.Start()
	}
	return g
}

// ListContainers returns containers matching the filter. Results are
// cached under the list class, keyed by the canonical filter string. The
// returned slice is the caller's to keep; the cached entry is shared
// across readers and never handed out directly.
func (g *Gateway) ListContainers(ctx context.Context, filter Filter) ([]ContainerSummary, error) {
	summaries, err := fetch(ctx, g, Key{ContainerID: filter.Key(), Class: ClassList}, "list", "",
		func(ctx context.Context, c EngineClient) ([]ContainerSummary, error) {
			return c.List(ctx, filter)
		})
	if err != nil {
		return nil, err
	}
	return slices.Clone(summaries), nil
}

// Inspect returns the detail for one container, cached under the status
// class.
func (g *Gateway) Inspect(ctx context.Context, id string) (ContainerDetail, error) {
	return fetch(ctx, g, Key{ContainerID: id, Class: ClassStatus}, "inspect", id,
		func(ctx context.Context, c EngineClient) (ContainerDetail, error) {
			return c.Inspect(ctx, id)
		})
}

// Status returns the container's state keyword (running, exited, ...).
// Served from the same status-class cache entry as Inspect.
func (g *Gateway) Status(ctx context.Context, id string) (string, error) {
	detail, err := g.Inspect(ctx, id)
	if err != nil {
		return "", err
	}
	return detail.Status, nil
}

// Stats returns a point-in-time resource usage snapshot, cached under the
// stats class.
func (g *Gateway) Stats(ctx context.Context, id string) (ContainerStats, error) {
	return fetch(ctx, g, Key{ContainerID: id, Class: ClassStats}, "stats", id,
		func(ctx context.Context, c EngineClient) (ContainerStats, error) {
			return c.Stats(ctx, id)
		})
}

// Start starts the container and invalidates its cached entries.
func (g *Gateway) Start(ctx context.Context, id string) error {
	return g.mutate(ctx, "start", id, func(ctx context.Context, c EngineClient) error {
		return c.Start(ctx, id)
	})
}

// Stop stops the container and invalidates its cached entries.
func (g *Gateway) Stop(ctx context.Context, id string) error {
	return g.mutate(ctx, "stop", id, func(ctx context.Context, c EngineClient) error {
		return c.Stop(ctx, id)
	})
}

// Restart restarts the container and invalidates its cached entries.
func (g *Gateway) Restart(ctx context.Context, id string) error {
	return g.mutate(ctx, "restart", id, func(ctx context.Context, c EngineClient) error {
		return c.Restart(ctx, id)
	})
}

// Close stops the health monitor, closes the pool, and purges the cache.
// Leases held by in-flight operations are closed as their holders release
// them. Idempotent; subsequent calls return nil.
func (g *Gateway) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	if g.monitor != nil {
		g.monitor.Stop()
	}
	err := g.pool.Close()
	g.cache.Purge()
	return err
}

// fetch is the shared read path: cache hit or lease-acquire + engine call +
// cache fill. The lease is released on every exit path via defer. Engine
// errors surface as *OperationError and are never cached.
//
// The invalidation version is snapshotted at the cache miss and checked by
// PutSince, so a read whose engine call overlapped a mutation cannot store
// its pre-mutation result after the mutation's invalidation.
func fetch[V any](ctx context.Context, g *Gateway, key Key, op, id string,
	call func(context.Context, EngineClient) (V, error),
) (V, error) {
	var zero V

	if g.closed.Load() {
		return zero, ErrGatewayClosed
	}

	if v, ok := g.cache.Get(key); ok {
		typed, ok := v.(V)
		if ok {
			return typed, nil
		}
		// A value of the wrong type under this key is an invariant
		// violation; drop it and refetch.
		Logger().Error("cache entry has wrong type, discarding",
			"key", key.String(), "error", ErrCacheCorruption)
		g.cache.Invalidate(key)
	}

	version := g.cache.Version()

	lease, token, err := g.pool.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer g.pool.Release(lease, token)

	v, err := call(ctx, lease.Client())
	if err != nil {
		return zero, &OperationError{Op: op, ContainerID: id, Err: err}
	}

	if putErr := g.cache.PutSince(key, v, g.cfg.TTLFor(key.Class), version); putErr != nil {
		Logger().Error("cache bound violated after eviction",
			"key", key.String(), "error", putErr)
	}
	return v, nil
}

// mutate is the shared write path: lease-acquire + engine call + release,
// then cache invalidation. Invalidation runs even when the call failed: a
// rejected mutation may still have partially applied on the engine side,
// so cached state is no longer trustworthy.
func (g *Gateway) mutate(ctx context.Context, op, id string,
	call func(context.Context, EngineClient) error,
) error {
	if g.closed.Load() {
		return ErrGatewayClosed
	}

	lease, token, err := g.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	// A panicking engine call must still return the lease; the flag keeps
	// the happy path's release-then-invalidate ordering.
	released := false
	defer func() {
		if !released {
			g.pool.Release(lease, token)
		}
	}()

	callErr := call(ctx, lease.Client())
	g.pool.Release(lease, token)
	released = true

	g.cache.InvalidateContainer(id)
	g.cache.InvalidateClass(ClassList)

	if callErr != nil {
		return &OperationError{Op: op, ContainerID: id, Err: callErr}
	}
	return nil
}

// IsRetryable reports whether an error from a gateway operation is a
// recoverable resource error (pool exhaustion or acquire timeout) that the
// caller may retry, as opposed to a connectivity or operation error, which
// the gateway surfaces immediately and never retries internally.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPoolExhausted) || errors.Is(err, ErrAcquireTimeout)
}
