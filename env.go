package enginegate

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors the recognized ENGINEGATE_* environment variables.
// Defaults match the Default* constants.
type envConfig struct {
	MaxConnections      int           `env:"ENGINEGATE_MAX_CONNECTIONS" envDefault:"10"`
	ConnectionTimeout   time.Duration `env:"ENGINEGATE_CONNECTION_TIMEOUT" envDefault:"30s"`
	MaxIdleTime         time.Duration `env:"ENGINEGATE_MAX_IDLE_TIME" envDefault:"300s"`
	HealthCheckInterval time.Duration `env:"ENGINEGATE_HEALTH_CHECK_INTERVAL" envDefault:"60s"`
	StatusTTL           time.Duration `env:"ENGINEGATE_STATUS_TTL" envDefault:"30s"`
	StatsTTL            time.Duration `env:"ENGINEGATE_STATS_TTL" envDefault:"5s"`
	ListTTL             time.Duration `env:"ENGINEGATE_LIST_TTL" envDefault:"60s"`
	MaxCacheEntries     int           `env:"ENGINEGATE_MAX_CACHE_ENTRIES" envDefault:"1000"`
}

// validate checks every field and reports all violations at once. Unlike
// the With* options, env values are runtime input, so violations are
// returned as errors rather than panics.
func (c envConfig) validate() error {
	var errs []error

	if c.MaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("ENGINEGATE_MAX_CONNECTIONS must be greater than 0, got %d", c.MaxConnections))
	}
	if c.ConnectionTimeout < 0 {
		errs = append(errs, fmt.Errorf("ENGINEGATE_CONNECTION_TIMEOUT must not be negative, got %s", c.ConnectionTimeout))
	}
	if c.MaxIdleTime <= 0 {
		errs = append(errs, fmt.Errorf("ENGINEGATE_MAX_IDLE_TIME must be greater than 0, got %s", c.MaxIdleTime))
	}
	if c.HealthCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("ENGINEGATE_HEALTH_CHECK_INTERVAL must be greater than 0, got %s", c.HealthCheckInterval))
	}
	if c.StatusTTL <= 0 {
		errs = append(errs, fmt.Errorf("ENGINEGATE_STATUS_TTL must be greater than 0, got %s", c.StatusTTL))
	}
	if c.StatsTTL <= 0 {
		errs = append(errs, fmt.Errorf("ENGINEGATE_STATS_TTL must be greater than 0, got %s", c.StatsTTL))
	}
	if c.ListTTL <= 0 {
		errs = append(errs, fmt.Errorf("ENGINEGATE_LIST_TTL must be greater than 0, got %s", c.ListTTL))
	}
	if c.MaxCacheEntries <= 0 {
		errs = append(errs, fmt.Errorf("ENGINEGATE_MAX_CACHE_ENTRIES must be greater than 0, got %d", c.MaxCacheEntries))
	}

	return errors.Join(errs...)
}

// OptionsFromEnv builds options from ENGINEGATE_* environment variables,
// for hosts that configure the gateway from their process environment:
//
//	opts, err := enginegate.OptionsFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gw := enginegate.New(opts...)
//
// Unset variables fall back to the package defaults. Durations use Go
// syntax ("30s", "5m"). Invalid values are reported as errors, all
// violations joined, rather than panicking: environment content is runtime
// input, not programmer error.
func OptionsFromEnv() ([]Option, error) {
	var c envConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	opts := []Option{
		WithMaxConnections(c.MaxConnections),
		WithConnectionTimeout(c.ConnectionTimeout),
		WithMaxIdleTime(c.MaxIdleTime),
		WithHealthCheckInterval(c.HealthCheckInterval),
		WithStatusTTL(c.StatusTTL),
		WithStatsTTL(c.StatsTTL),
		WithListTTL(c.ListTTL),
		WithMaxCacheEntries(c.MaxCacheEntries),
	}
	return opts, nil
}
