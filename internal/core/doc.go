// Package core contains the internal implementation of enginegate: the
// bounded engine-connection pool, the class-partitioned TTL cache, the
// gateway composing the two, and the periodic health monitor.
//
// The public enginegate package wraps and re-exports the pieces of this
// package that belong on the API surface.
package core
