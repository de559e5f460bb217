package enginegate

import "github.com/xrayctl/enginegate/internal/core"

// gatewayConfig holds configuration for a Gateway. This unexported type
// wraps core.Config via embedding, keeping internal/core types out of the
// public API signature while avoiding field-by-field duplication.
type gatewayConfig struct {
	core.Config
}

// toCoreConfig returns the embedded core.Config.
func (c gatewayConfig) toCoreConfig() core.Config {
	return c.Config
}
