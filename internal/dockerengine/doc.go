// Package dockerengine adapts the Docker Engine API to the narrow
// EngineClient capability surface enginegate consumes. One Client wraps one
// SDK connection; the pool dials and closes them.
package dockerengine
