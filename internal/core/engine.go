package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EngineClient is the narrow capability surface enginegate requires from a
// container engine connection. The real Docker-backed client and test
// doubles both implement it.
//
// Every method takes a context because every call crosses a process
// boundary. Stats returns a point-in-time snapshot, not a stream.
type EngineClient interface {
	List(ctx context.Context, filter Filter) ([]ContainerSummary, error)
	Inspect(ctx context.Context, id string) (ContainerDetail, error)
	Stats(ctx context.Context, id string) (ContainerStats, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Restart(ctx context.Context, id string) error

	// Ping is the lightweight probe used by pool health checks.
	Ping(ctx context.Context) error

	// Close releases the underlying engine connection.
	Close() error
}

// EngineDialer opens one engine connection. The pool owns dialing: a dialer
// is invoked during Acquire when no idle lease is available, and the
// resulting client is closed by the pool on eviction or shutdown.
type EngineDialer func(ctx context.Context) (EngineClient, error)

// Filter narrows a container listing. The zero value matches everything.
type Filter struct {
	// Name matches containers whose name contains this substring.
	Name string

	// Label matches containers carrying this label ("key" or "key=value").
	Label string
}

// Key returns a canonical string form of the filter, used as the
// container-id component of list-class cache keys.
func (f Filter) Key() string {
	if f.Name == "" && f.Label == "" {
		return "*"
	}
	var parts []string
	if f.Name != "" {
		parts = append(parts, "name="+f.Name)
	}
	if f.Label != "" {
		parts = append(parts, "label="+f.Label)
	}
	return strings.Join(parts, ",")
}

// ContainerSummary is one row of a container listing.
type ContainerSummary struct {
	ID        string
	Name      string
	Image     string
	State     string // engine state keyword: running, exited, ...
	Status    string // human-readable, e.g. "Up 3 hours"
	CreatedAt time.Time
}

// ContainerDetail is the result of inspecting a single container.
type ContainerDetail struct {
	ID        string
	Name      string
	Image     string
	Status    string // engine state keyword: running, exited, ...
	Running   bool
	Health    string // health-check status, empty when none is configured
	ExitCode  int
	StartedAt time.Time
}

// ContainerStats is a point-in-time resource usage snapshot.
type ContainerStats struct {
	ContainerID   string
	CPUPercent    float64
	MemoryUsage   uint64
	MemoryLimit   uint64
	MemoryPercent float64
	NetworkRx     uint64
	NetworkTx     uint64
	ReadAt        time.Time
}

// OperationError reports an engine call that the engine rejected or failed
// to complete. It carries the operation kind and the container it targeted
// so front ends can render actionable messages. Results that produced an
// OperationError are never cached.
type OperationError struct {
	Op          string
	ContainerID string
	Err         error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.ContainerID == "" {
		return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("engine %s %s: %v", e.Op, e.ContainerID, e.Err)
}

// Unwrap returns the underlying engine error.
func (e *OperationError) Unwrap() error {
	return e.Err
}
