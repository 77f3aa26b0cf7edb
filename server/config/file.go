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
	"fmt"
	"strings"
	"sync"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable that overrides a configuration key.
const EnvPrefix = "PORTIER"

// File is the complete configuration of the server.
type File struct {
	Server    *ServerSection    `mapstructure:"server" validate:"required"`
	Directory *DirectorySection `mapstructure:"directory"`
	Security  *SecuritySection  `mapstructure:"security"`
	Session   *SessionSection   `mapstructure:"session" validate:"required"`
	SQL       *SQLSection       `mapstructure:"sql" validate:"required"`
	Redis     *RedisSection     `mapstructure:"redis"`

	mu sync.RWMutex
}

func (f *File) GetServer() *ServerSection {
	if f == nil {
		return nil
	}

	return f.Server
}

func (f *File) GetDirectory() *DirectorySection {
	if f == nil {
		return nil
	}

	return f.Directory
}

func (f *File) GetSecurity() *SecuritySection {
	if f == nil {
		return nil
	}

	return f.Security
}

func (f *File) GetSession() *SessionSection {
	if f == nil {
		return nil
	}

	return f.Session
}

func (f *File) GetSQL() *SQLSection {
	if f == nil {
		return nil
	}

	return f.SQL
}

func (f *File) GetRedis() *RedisSection {
	if f == nil {
		return nil
	}

	return f.Redis
}

// SetDefaults registers every default. Keys need a default to be overridable by environment variables.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:8080")
	v.SetDefault("server.instance_name", "portier")
	v.SetDefault("server.log.level", "info")
	v.SetDefault("server.log.json", false)
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.compression", false)
	v.SetDefault("server.pprof", false)
	v.SetDefault("server.tracing.enabled", false)
	v.SetDefault("server.tracing.service_name", "")
	v.SetDefault("server.tracing.endpoint", "")
	v.SetDefault("server.tracing.insecure", true)
	v.SetDefault("server.tracing.sampler_ratio", 1.0)
	v.SetDefault("server.tracing.propagators", []string{})
	v.SetDefault("server.basic_auth.enabled", false)
	v.SetDefault("server.basic_auth.username", "")
	v.SetDefault("server.basic_auth.password", "")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert", "")
	v.SetDefault("server.tls.key", "")
	v.SetDefault("server.haproxy_v2", false)

	v.SetDefault("directory.enabled", false)
	v.SetDefault("directory.auto_provision", false)
	v.SetDefault("directory.server_uri", "")
	v.SetDefault("directory.domain", "")
	v.SetDefault("directory.bind_dn", "")
	v.SetDefault("directory.base_dn", "")
	v.SetDefault("directory.group_base_ou", "")
	v.SetDefault("directory.bind_method", definitions.BindMethodNTLM)
	v.SetDefault("directory.search_scope", definitions.LDAPScopeSub)
	v.SetDefault("directory.timeout", "10s")

	v.SetDefault("security.trusted_ip_ranges", []map[string]string{})
	v.SetDefault("security.totp_issuer", definitions.DefaultTOTPIssuer)
	v.SetDefault("security.totp_skew", definitions.DefaultTOTPSkew)
	v.SetDefault("security.totp_replay_protection", false)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.encryption_key", "")
	v.SetDefault("session.full_cookie", definitions.DefaultFullCookie)
	v.SetDefault("session.pending_cookie", definitions.DefaultPendingCookie)
	v.SetDefault("session.max_age", definitions.DefaultSessionMaxAge.String())
	v.SetDefault("session.pending_max_age", definitions.DefaultPendingMaxAge.String())
	v.SetDefault("session.secure", true)
	v.SetDefault("session.revalidation_interval", definitions.DefaultRevalidationInterval.String())

	v.SetDefault("sql.dsn", "")
	v.SetDefault("sql.max_open_conns", 10)
	v.SetDefault("sql.max_idle_conns", 5)
	v.SetDefault("sql.conn_max_lifetime", "30m")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// NewViper returns a viper instance prepared with defaults and environment overrides.
func NewViper() *viper.Viper {
	v := viper.New()

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration file at path. Without a path the usual locations are searched.
func Load(v *viper.Viper, path string, format string) (*File, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("portier")
		v.AddConfigPath("/usr/local/etc/portier/")
		v.AddConfigPath("/etc/portier/")
		v.AddConfigPath("$HOME/.portier")
		v.AddConfigPath(".")
	}

	if format != "" {
		v.SetConfigType(format)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return Decode(v)
}

// Decode unmarshals and validates whatever v currently holds.
func Decode(v *viper.Viper) (*File, error) {
	file := &File{}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	if err := v.UnmarshalExact(file, hook); err != nil {
		return nil, err
	}

	if err := file.validate(); err != nil {
		return nil, err
	}

	return file, nil
}

// validate checks the connection parameters first, so a broken deployment names the missing key.
func (f *File) validate() error {
	f.mu.RLock()

	defer f.mu.RUnlock()

	if f.GetSQL().GetDSN() == "" {
		return errors.ErrConfigSQLDSN
	}

	if f.GetSession().GetSecret() == "" {
		return errors.ErrConfigSessionSecret
	}

	if dir := f.GetDirectory(); dir.IsEnabled() {
		if dir.GetServerURI() == "" {
			return errors.ErrConfigDirectoryServer
		}

		if dir.GetBaseDN() == "" {
			return errors.ErrConfigDirectoryBaseDN
		}
	}

	if _, err := ParseLogLevel(f.GetServer().GetLogLevel()); err != nil {
		return fmt.Errorf("%w: %s", err, f.GetServer().GetLogLevel())
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	return validate.Struct(f)
}
