package enginegate

import (
	"log/slog"

	"github.com/xrayctl/enginegate/internal/core"
)

// SetLogger replaces the package-level logger used by enginegate, allowing
// applications to integrate its logging with their own infrastructure. The
// provided logger should already carry any desired attributes; enginegate
// adds none.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next use and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other enginegate operations;
// a concurrent log call may briefly use the previous logger.
//
// Example:
//
//	enginegate.SetLogger(myLogger.With("component", "enginegate"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
