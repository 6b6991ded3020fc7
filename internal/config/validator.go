package config

import (
	"fmt"
	"os"
	"strings"
)

// validLogLevels is the case-insensitive log-level vocabulary accepted in
// config, including the whisper/haunt/spooky/scream/poltergeist/silence
// aliases carried over from the original source this was ported from.
var validLogLevels = []string{
	"whisper", "haunt", "spooky", "scream", "poltergeist", "silence",
	"trace", "debug", "info", "warn", "error", "off",
}

var validStrategies = []string{
	"round-robin", "round_robin", "rr",
	"random",
	"consistent-hash", "consistent_hash", "ch",
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// Validate applies every structural and semantic invariant on a decoded
// Config. It is exported separately from Load so tests can validate an
// in-memory Config without touching disk.
func Validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("invalid config version: expected 1, got %d", cfg.Version)
	}

	if cfg.Listen.Protocol != "http3" {
		return fmt.Errorf("invalid listen protocol: expected %q, got %q", "http3", cfg.Listen.Protocol)
	}

	if !containsFold(validLogLevels, cfg.Log.Level) {
		return fmt.Errorf("invalid log level: %q", cfg.Log.Level)
	}

	if cfg.LoadBalancing.Type != "" && !containsFold(validStrategies, cfg.LoadBalancing.Type) {
		return fmt.Errorf("invalid top-level load_balancing.type: %q", cfg.LoadBalancing.Type)
	}

	if cfg.Listen.Address == "" {
		return fmt.Errorf("listen address is empty")
	}

	if cfg.Listen.Port < 1 || cfg.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen port %d: must be between 1 and 65535", cfg.Listen.Port)
	}

	if err := validateReadableFile("TLS certificate", cfg.Listen.TLS.Cert); err != nil {
		return err
	}
	if err := validateReadableFile("TLS private key", cfg.Listen.TLS.Key); err != nil {
		return err
	}

	if len(cfg.Upstreams) == 0 {
		return fmt.Errorf("no upstreams configured")
	}

	for name, up := range cfg.Upstreams {
		if err := validateUpstream(name, up); err != nil {
			return err
		}
	}

	for i, route := range cfg.Routes {
		if route.Upstream == "" {
			return fmt.Errorf("route[%d] has no upstream", i)
		}
		if _, ok := cfg.Upstreams[route.Upstream]; !ok {
			return fmt.Errorf("route[%d] references unknown upstream %q", i, route.Upstream)
		}
		if route.Path != "" && !strings.HasPrefix(route.Path, "/") {
			return fmt.Errorf("route[%d] path %q must start with '/'", i, route.Path)
		}
	}

	return nil
}

func validateUpstream(name string, up *Upstream) error {
	if name == "" {
		return fmt.Errorf("upstream name is empty")
	}

	if up.Route != nil {
		hasHost := up.Route.Host != ""
		hasPath := up.Route.PathPrefix != ""
		if !hasHost && !hasPath {
			return fmt.Errorf("upstream %q: route matcher has neither host nor path_prefix set", name)
		}
		if hasPath && !strings.HasPrefix(up.Route.PathPrefix, "/") {
			return fmt.Errorf("upstream %q: route path_prefix %q must start with '/'", name, up.Route.PathPrefix)
		}
	}

	if !containsFold(validStrategies, up.Strategy) {
		return fmt.Errorf("upstream %q: invalid strategy %q", name, up.Strategy)
	}

	if len(up.Backends) == 0 {
		return fmt.Errorf("upstream %q has no backends configured", name)
	}

	for _, b := range up.Backends {
		if err := validateBackend(name, b); err != nil {
			return err
		}
	}

	return nil
}

func validateBackend(upstreamName string, b Backend) error {
	if b.ID == "" {
		return fmt.Errorf("upstream %q: backend id is empty", upstreamName)
	}
	if b.Address == "" {
		return fmt.Errorf("upstream %q: backend %q address is empty", upstreamName, b.ID)
	}
	if !strings.Contains(b.Address, ":") {
		return fmt.Errorf("upstream %q: backend %q address %q must be host:port", upstreamName, b.ID, b.Address)
	}
	if b.Weight < 1 {
		return fmt.Errorf("upstream %q: backend %q has invalid weight %d", upstreamName, b.ID, b.Weight)
	}

	hc := b.HealthCheck
	if hc == nil {
		return nil
	}
	if hc.IntervalMS < 1 {
		return fmt.Errorf("upstream %q: backend %q health check interval must be >= 1ms", upstreamName, b.ID)
	}
	if hc.TimeoutMS < 1 {
		return fmt.Errorf("upstream %q: backend %q health check timeout must be >= 1ms", upstreamName, b.ID)
	}
	if hc.FailureThreshold < 1 {
		return fmt.Errorf("upstream %q: backend %q health check failure_threshold must be >= 1", upstreamName, b.ID)
	}
	if hc.SuccessThreshold < 1 {
		return fmt.Errorf("upstream %q: backend %q health check success_threshold must be >= 1", upstreamName, b.ID)
	}
	if hc.CooldownMS < 1 {
		return fmt.Errorf("upstream %q: backend %q health check cooldown_ms must be >= 1ms", upstreamName, b.ID)
	}
	return nil
}

func validateReadableFile(label, path string) error {
	if path == "" {
		return fmt.Errorf("%s path is empty", label)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s file %q does not exist: %w", label, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s path %q is a directory", label, path)
	}
	if _, err := os.ReadFile(path); err != nil {
		return fmt.Errorf("cannot read %s file %q: %w", label, path, err)
	}
	return nil
}
