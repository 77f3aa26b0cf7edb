// Copyright (C) 2025 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"strings"

	"github.com/croessner/portier/server/errors"
)

type ServerSection struct {
	Address        string         `mapstructure:"address" validate:"required,hostname_port"`
	InstanceName   string         `mapstructure:"instance_name" validate:"omitempty,printascii,max=255"`
	Log            LogSection     `mapstructure:"log"`
	TrustedProxies []string       `mapstructure:"trusted_proxies" validate:"omitempty,dive,ip|cidr"`
	Compression    bool           `mapstructure:"compression"`
	PProf          bool           `mapstructure:"pprof"`
	Tracing        TracingSection `mapstructure:"tracing"`
	BasicAuth      BasicAuth      `mapstructure:"basic_auth"`
	TLS            TLSSection     `mapstructure:"tls"`

	// HAProxyV2 requires a PROXY protocol header on every accepted connection.
	HAProxyV2 bool `mapstructure:"haproxy_v2"`
}

type TLSSection struct {
	Enabled bool   `mapstructure:"enabled"`
	Cert    string `mapstructure:"cert" validate:"required_if=Enabled true,omitempty,file"`
	Key     string `mapstructure:"key" validate:"required_if=Enabled true,omitempty,file"`
}

// BasicAuth protects the metrics and profiling endpoints.
type BasicAuth struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username" validate:"required_if=Enabled true,omitempty,excludes=:"`
	Password string `mapstructure:"password" validate:"required_if=Enabled true"`
}

type LogSection struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `mapstructure:"json"`
}

// TracingSection configures the OpenTelemetry OTLP/HTTP exporter.
type TracingSection struct {
	Enabled      bool     `mapstructure:"enabled"`
	ServiceName  string   `mapstructure:"service_name" validate:"omitempty,printascii"`
	Endpoint     string   `mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure     bool     `mapstructure:"insecure"`
	SamplerRatio float64  `mapstructure:"sampler_ratio" validate:"min=0,max=1"`
	Propagators  []string `mapstructure:"propagators" validate:"omitempty,dive,oneof=tracecontext baggage b3 b3multi jaeger"`
}

func (s *ServerSection) GetAddress() string {
	if s == nil {
		return ""
	}

	return s.Address
}

func (s *ServerSection) GetInstanceName() string {
	if s == nil {
		return ""
	}

	return s.InstanceName
}

func (s *ServerSection) GetLogLevel() string {
	if s == nil {
		return ""
	}

	return s.Log.Level
}

func (s *ServerSection) IsLogJSON() bool {
	if s == nil {
		return false
	}

	return s.Log.JSON
}

func (s *ServerSection) GetTrustedProxies() []string {
	if s == nil || s.TrustedProxies == nil {
		return []string{}
	}

	return s.TrustedProxies
}

func (s *ServerSection) IsCompressionEnabled() bool {
	if s == nil {
		return false
	}

	return s.Compression
}

func (s *ServerSection) IsPProfEnabled() bool {
	if s == nil {
		return false
	}

	return s.PProf
}

func (s *ServerSection) GetTracing() *TracingSection {
	if s == nil {
		return nil
	}

	return &s.Tracing
}

func (s *ServerSection) GetBasicAuth() *BasicAuth {
	if s == nil {
		return nil
	}

	return &s.BasicAuth
}

func (s *ServerSection) GetTLS() *TLSSection {
	if s == nil {
		return nil
	}

	return &s.TLS
}

func (s *ServerSection) IsHAProxyV2() bool {
	if s == nil {
		return false
	}

	return s.HAProxyV2
}

func (t *TLSSection) IsEnabled() bool {
	if t == nil {
		return false
	}

	return t.Enabled
}

func (b *BasicAuth) IsEnabled() bool {
	if b == nil {
		return false
	}

	return b.Enabled
}

func (t *TracingSection) IsEnabled() bool {
	if t == nil {
		return false
	}

	return t.Enabled
}

// ParseLogLevel accepts the level names allowed in server.log.level.
func ParseLogLevel(name string) (string, error) {
	switch lvl := strings.ToLower(strings.TrimSpace(name)); lvl {
	case "", "info":
		return "info", nil
	case "debug", "warn", "error":
		return lvl, nil
	case "warning":
		return "warn", nil
	default:
		return "", errors.ErrWrongLogLevel
	}
}
