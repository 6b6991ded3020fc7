// Package config defines the on-disk configuration shape for h3edge and the
// loader/validator pair that turns a YAML file into a validated Config.
package config

import "time"

// Config is the root of the YAML configuration file.
type Config struct {
	Version int `yaml:"version"`

	Listen Listen `yaml:"listen"`

	// Upstreams is keyed by upstream name so routes can refer to it by
	// name; order within the file is not significant.
	Upstreams map[string]*Upstream `yaml:"upstreams"`

	// Routes is an optional top-level route table, merged with each
	// upstream's own inline matcher into one longest-prefix table (neither
	// kind takes priority) -- useful for upstreams that want to be
	// reachable by more than one path.
	Routes []Route `yaml:"routes"`

	// LoadBalancing is a top-level default strategy. Per-upstream
	// Strategy is authoritative; this is used only when an upstream
	// omits its own strategy.
	LoadBalancing LoadBalancing `yaml:"load_balancing"`

	Log Log `yaml:"log"`

	Admin Admin `yaml:"admin"`
}

// Listen describes the HTTP/3 data-plane socket.
type Listen struct {
	Protocol string `yaml:"protocol"`
	Port     int    `yaml:"port"`
	Address  string `yaml:"address"`
	TLS      TLS    `yaml:"tls"`
}

// TLS holds paths to the PEM cert/key pair used to terminate QUIC.
type TLS struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`

	// InsecureSkipVerify is decoded but not read by any component:
	// outbound requests and health probes are cleartext HTTP/2, and the
	// QUIC listener never verifies client certs.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Route is a top-level path-prefix to upstream-name mapping.
type Route struct {
	Path     string `yaml:"path"`
	Upstream string `yaml:"upstream"`
}

// RouteMatcher is an upstream's own inline route matcher.
type RouteMatcher struct {
	Host       string `yaml:"host"`
	PathPrefix string `yaml:"path_prefix"`
}

// Upstream is a named pool of backends sharing one load-balancing strategy.
type Upstream struct {
	Strategy string        `yaml:"strategy"`
	Backends []Backend     `yaml:"backends"`
	Route    *RouteMatcher `yaml:"route"`
}

// Backend is one member of an upstream pool.
type Backend struct {
	ID          string       `yaml:"id"`
	Address     string       `yaml:"address"`
	Weight      int          `yaml:"weight"`
	HealthCheck *HealthCheck `yaml:"health_check"`
}

// HealthCheck configures the active probe for one backend.
type HealthCheck struct {
	Path             string `yaml:"path"`
	IntervalMS       int    `yaml:"interval_ms"`
	TimeoutMS        int    `yaml:"timeout_ms"`
	FailureThreshold int    `yaml:"failure_threshold"`
	SuccessThreshold int    `yaml:"success_threshold"`
	CooldownMS       int    `yaml:"cooldown_ms"`
}

func (h *HealthCheck) Interval() time.Duration { return time.Duration(h.IntervalMS) * time.Millisecond }
func (h *HealthCheck) Timeout() time.Duration  { return time.Duration(h.TimeoutMS) * time.Millisecond }
func (h *HealthCheck) Cooldown() time.Duration { return time.Duration(h.CooldownMS) * time.Millisecond }

// LoadBalancing is the top-level default strategy selector.
type LoadBalancing struct {
	Type string `yaml:"type"`
}

// Log configures the process-wide structured logger.
type Log struct {
	Level string `yaml:"level"`
}

// Admin configures the plaintext metrics/health HTTP surface.
type Admin struct {
	Disabled bool   `yaml:"disabled"`
	Listen   string `yaml:"listen"`
}
