package core

import "fmt"

// DataClass categorizes cached engine queries. Each class carries its own
// freshness window (TTL), reflecting how quickly the underlying data churns:
// container status changes rarely, stats change constantly, and list
// membership changes only on create/delete.
type DataClass int

const (
	// ClassStatus covers inspect/status queries for a single container.
	ClassStatus DataClass = iota

	// ClassStats covers point-in-time resource usage snapshots. High churn,
	// shortest TTL.
	ClassStats

	// ClassList covers container listing queries, keyed by filter.
	ClassList
)

// dataClasses enumerates every valid class, in declaration order. Used when
// invalidating all classes for one container.
var dataClasses = [...]DataClass{ClassStatus, ClassStats, ClassList}

// IsValid reports whether c is a recognized DataClass value.
func (c DataClass) IsValid() bool {
	switch c {
	case ClassStatus, ClassStats, ClassList:
		return true
	default:
		return false
	}
}

// String returns the class name.
func (c DataClass) String() string {
	switch c {
	case ClassStatus:
		return "status"
	case ClassStats:
		return "stats"
	case ClassList:
		return "list"
	default:
		return fmt.Sprintf("DataClass(%d)", int(c))
	}
}
