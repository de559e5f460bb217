package enginegate

import (
	"context"

	"github.com/xrayctl/enginegate/internal/core"
	"github.com/xrayctl/enginegate/internal/dockerengine"
)

// Compile-time interface satisfaction check.
var _ Gateway = (*gatewayWrapper)(nil)

// Gateway is the sole surface through which front ends reach the container
// engine. Reads are cached per data class; mutations invalidate what they
// touch. All methods are safe for concurrent use.
//
// Errors: resource errors (ErrPoolExhausted, ErrAcquireTimeout) are
// recoverable and may be retried by the caller; see IsRetryable.
// Connectivity errors (ErrConnectionFailed) and engine rejections
// (*OperationError) surface immediately and are never retried internally.
type Gateway interface {
	// ListContainers returns containers matching the filter, including
	// stopped ones. Cached under the list class.
	ListContainers(ctx context.Context, filter Filter) ([]ContainerSummary, error)

	// Inspect returns the detail for one container. Cached under the
	// status class.
	Inspect(ctx context.Context, id string) (ContainerDetail, error)

	// Status returns the container's state keyword (running, exited, ...).
	// Served from the same status-class cache entry as Inspect.
	Status(ctx context.Context, id string) (string, error)

	// Stats returns a point-in-time resource usage snapshot. Cached under
	// the stats class.
	Stats(ctx context.Context, id string) (ContainerStats, error)

	// Start starts the container and invalidates its cached entries.
	Start(ctx context.Context, id string) error

	// Stop stops the container and invalidates its cached entries.
	Stop(ctx context.Context, id string) error

	// Restart restarts the container and invalidates its cached entries.
	Restart(ctx context.Context, id string) error

	// Close stops the background monitor and closes every pooled engine
	// connection. Idempotent. Operations after Close return ErrClosed.
	Close() error
}

// gatewayWrapper wraps core.Gateway to implement the Gateway interface.
//
// The core.Gateway is stored as a named (unexported) field rather than
// embedded so callers cannot reach internal methods through type
// assertions.
type gatewayWrapper struct {
	gw *core.Gateway
}

func (w *gatewayWrapper) ListContainers(ctx context.Context, filter Filter) ([]ContainerSummary, error) {
	return w.gw.ListContainers(ctx, filter)
}

func (w *gatewayWrapper) Inspect(ctx context.Context, id string) (ContainerDetail, error) {
	return w.gw.Inspect(ctx, id)
}

func (w *gatewayWrapper) Status(ctx context.Context, id string) (string, error) {
	return w.gw.Status(ctx, id)
}

func (w *gatewayWrapper) Stats(ctx context.Context, id string) (ContainerStats, error) {
	return w.gw.Stats(ctx, id)
}

func (w *gatewayWrapper) Start(ctx context.Context, id string) error {
	return w.gw.Start(ctx, id)
}

func (w *gatewayWrapper) Stop(ctx context.Context, id string) error {
	return w.gw.Stop(ctx, id)
}

func (w *gatewayWrapper) Restart(ctx context.Context, id string) error {
	return w.gw.Restart(ctx, id)
}

func (w *gatewayWrapper) Close() error {
	return w.gw.Close()
}

// defaultGatewayConfig returns a gatewayConfig populated with all default
// values. New and test helpers use this to avoid duplicating the default
// field assignments.
func defaultGatewayConfig() gatewayConfig {
	return gatewayConfig{core.Config{
		MaxConnections:      DefaultMaxConnections,
		ConnectionTimeout:   DefaultConnectionTimeout,
		MaxIdleTime:         DefaultMaxIdleTime,
		HealthCheckInterval: DefaultHealthCheckInterval,
		StatusTTL:           DefaultStatusTTL,
		StatsTTL:            DefaultStatsTTL,
		ListTTL:             DefaultListTTL,
		MaxCacheEntries:     DefaultMaxCacheEntries,
	}}
}

// New creates a Gateway with the given options and starts its health
// monitor. Each call returns an independent instance owning its own pool
// and cache; there is no process-level shared state, so tests can build one
// gateway per case.
//
// New performs no engine I/O: connections are dialed lazily on first use.
// Unless WithDialer overrides it, connections go to the Docker daemon
// configured by the environment (DOCKER_HOST et al).
//
// Panics if any option received an invalid value. See the individual With*
// functions for constraints.
//
//nolint:ireturn // the constructor hides the concrete gateway behind the interface
func New(opts ...Option) Gateway {
	cfg := defaultGatewayConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Dialer == nil {
		cfg.Dialer = dockerengine.Dialer()
	}
	return &gatewayWrapper{gw: core.NewGateway(cfg.toCoreConfig())}
}

// IsRetryable reports whether err is a recoverable resource error (pool
// exhaustion or acquire timeout) worth retrying, as opposed to a
// connectivity error or an engine rejection.
func IsRetryable(err error) bool {
	return core.IsRetryable(err)
}
