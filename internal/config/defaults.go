package config

const (
	defaultProtocol = "http3"
	defaultPort     = 9889
	defaultAddress  = "0.0.0.0"
	defaultWeight   = 100

	defaultHealthPath             = "/health"
	defaultHealthIntervalMS       = 5000
	defaultHealthTimeoutMS        = 2000
	defaultHealthFailureThreshold = 3
	defaultHealthSuccessThreshold = 2
	defaultHealthCooldownMS       = 10000

	defaultLogLevel = "info"

	defaultAdminListen = "127.0.0.1:2019"
)

// applyDefaults fills in every optional field left zero-valued by the YAML
// decoder, mirroring the `get_default_*` helpers of the original source
// this config shape was ported from.
func applyDefaults(cfg *Config) {
	if cfg.Listen.Protocol == "" {
		cfg.Listen.Protocol = defaultProtocol
	}
	if cfg.Listen.Port == 0 {
		cfg.Listen.Port = defaultPort
	}
	if cfg.Listen.Address == "" {
		cfg.Listen.Address = defaultAddress
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Admin.Listen == "" {
		cfg.Admin.Listen = defaultAdminListen
	}

	for _, up := range cfg.Upstreams {
		if up.Strategy == "" {
			up.Strategy = cfg.LoadBalancing.Type
		}
		for i := range up.Backends {
			b := &up.Backends[i]
			if b.Weight == 0 {
				b.Weight = defaultWeight
			}
			if b.HealthCheck == nil {
				continue
			}
			hc := b.HealthCheck
			if hc.Path == "" {
				hc.Path = defaultHealthPath
			}
			if hc.IntervalMS == 0 {
				hc.IntervalMS = defaultHealthIntervalMS
			}
			if hc.TimeoutMS == 0 {
				hc.TimeoutMS = defaultHealthTimeoutMS
			}
			if hc.FailureThreshold == 0 {
				hc.FailureThreshold = defaultHealthFailureThreshold
			}
			if hc.SuccessThreshold == 0 {
				hc.SuccessThreshold = defaultHealthSuccessThreshold
			}
			if hc.CooldownMS == 0 {
				hc.CooldownMS = defaultHealthCooldownMS
			}
		}
	}
}
