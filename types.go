package enginegate

import "github.com/xrayctl/enginegate/internal/core"

// EngineClient is the narrow capability surface enginegate requires from a
// container engine connection: list, inspect, stats, start, stop, restart,
// plus a lightweight Ping used by pool health probes. The Docker-backed
// client and test doubles both implement it.
//
// EngineClient is a type alias (not a named type) so that values built in
// internal packages satisfy the public interface directly.
type EngineClient = core.EngineClient

// EngineDialer opens one engine connection. The pool owns dialing: the
// dialer runs when an operation needs a connection and none is idle, and
// the resulting client is closed by the pool on eviction or shutdown.
type EngineDialer = core.EngineDialer

// Filter narrows a container listing. The zero value matches everything.
type Filter = core.Filter

// ContainerSummary is one row of a container listing.
type ContainerSummary = core.ContainerSummary

// ContainerDetail is the result of inspecting a single container.
type ContainerDetail = core.ContainerDetail

// ContainerStats is a point-in-time resource usage snapshot.
type ContainerStats = core.ContainerStats

// DataClass categorizes cached engine queries; each class has its own
// freshness window. See ClassStatus, ClassStats, ClassList.
//
// DataClass is a type alias so the underlying core methods (IsValid,
// String) are part of the public API without redeclaration.
type DataClass = core.DataClass

const (
	// ClassStatus covers inspect/status queries for a single container.
	ClassStatus = core.ClassStatus

	// ClassStats covers point-in-time resource usage snapshots.
	ClassStats = core.ClassStats

	// ClassList covers container listing queries, keyed by filter.
	ClassList = core.ClassList
)
