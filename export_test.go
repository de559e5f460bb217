package enginegate

import "time"

// ConfigSnapshot exposes the effective configuration produced by a set of
// options, so external tests can verify option wiring without reaching into
// internal packages.
type ConfigSnapshot struct {
	MaxConnections       int
	ConnectionTimeout    time.Duration
	MaxIdleTime          time.Duration
	HealthCheckInterval  time.Duration
	StatusTTL            time.Duration
	StatsTTL             time.Duration
	ListTTL              time.Duration
	MaxCacheEntries      int
	DisableHealthMonitor bool
	HasDialer            bool
}

// ApplyOptionsForTesting applies opts to a default configuration and
// returns the resulting snapshot.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultGatewayConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return ConfigSnapshot{
		MaxConnections:       cfg.MaxConnections,
		ConnectionTimeout:    cfg.ConnectionTimeout,
		MaxIdleTime:          cfg.MaxIdleTime,
		HealthCheckInterval:  cfg.HealthCheckInterval,
		StatusTTL:            cfg.StatusTTL,
		StatsTTL:             cfg.StatsTTL,
		ListTTL:              cfg.ListTTL,
		MaxCacheEntries:      cfg.MaxCacheEntries,
		DisableHealthMonitor: cfg.DisableHealthMonitor,
		HasDialer:            cfg.Dialer != nil,
	}
}
