package goSession

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines the Controller configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Backend    BackendConfig
	Lifecycle  LifecycleConfig
	Validation ValidationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig locates the finance backend's authentication endpoints.
type BackendConfig struct {
	// BaseURL is the absolute http(s) root every endpoint path is appended to.
	BaseURL   string
	Endpoints EndpointsConfig
}

// EndpointsConfig holds endpoint paths relative to BackendConfig.BaseURL.
type EndpointsConfig struct {
	Login    string
	Register string
	Refresh  string
}

/*
====================================
LIFECYCLE CONFIG
====================================
*/

// LifecycleConfig controls app-lifecycle driven expiry.
type LifecycleConfig struct {
	// BackgroundGrace is how long the app may stay in the background before the session
	// is torn down.
	BackgroundGrace time.Duration
}

/*
====================================
VALIDATION CONFIG
====================================
*/

// ValidationConfig toggles client-side credential checks before login and registration.
type ValidationConfig struct {
	Enabled bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Endpoints: EndpointsConfig{
				Login:    "/auth/login",
				Register: "/users",
				Refresh:  "/auth/refresh",
			},
		},
		Lifecycle: LifecycleConfig{
			BackgroundGrace: 5 * time.Minute,
		},
		Validation: ValidationConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem, or nil.
func (c *Config) Validate() error {
	// Backend
	if c.Backend.BaseURL == "" {
		return errors.New("Backend BaseURL must be set")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Host == "" {
		return errors.New("Backend BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Backend BaseURL scheme must be http or https")
	}
	for name, path := range map[string]string{
		"Login":    c.Backend.Endpoints.Login,
		"Register": c.Backend.Endpoints.Register,
		"Refresh":  c.Backend.Endpoints.Refresh,
	} {
		if !strings.HasPrefix(path, "/") {
			return errors.New("Backend Endpoints." + name + " must start with /")
		}
	}

	// Lifecycle
	if c.Lifecycle.BackgroundGrace <= 0 {
		return errors.New("Lifecycle BackgroundGrace must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
