package config

import "strings"

// MetricsConfig configures StatsD emission (STATSD_ prefix). An empty address disables it.
type MetricsConfig struct {
	Address string `env:"ADDR"   envDefault:""`
	Prefix  string `env:"PREFIX" envDefault:"convenios"`
	// Tags are attached to every metric, e.g. "env:prod,region:ne".
	Tags map[string]string `env:"TAGS" envKeyValSeparator:":"`
}

// Sanitize trims the address and prefix.
func (m *MetricsConfig) Sanitize() {
	m.Address = strings.TrimSpace(m.Address)
	m.Prefix = strings.Trim(strings.TrimSpace(m.Prefix), ".")
}
