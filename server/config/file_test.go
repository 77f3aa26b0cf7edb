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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/croessner/portier/server/errors"
	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  address: "0.0.0.0:9080"
  log:
    level: debug
    json: true
directory:
  enabled: true
  auto_provision: true
  server_uri: "ldap://dc1.example.test:389"
  domain: EXAMPLE
  base_dn: "DC=example,DC=test"
  group_base_ou: "OU=Groups,DC=example,DC=test"
  search_scope: one
security:
  trusted_ip_ranges:
    - from: 10.0.0.0
      to: 10.0.0.255
    - from: garbage
      to: 10.0.0.1
  totp_skew: 2
session:
  secret: "0123456789abcdef0123456789abcdef"
  revalidation_interval: 10s
sql:
  dsn: "postgres://portier@localhost/portier?sslmode=disable"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "portier.yml")

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(NewViper(), writeConfig(t, sampleYAML), "yaml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9080", cfg.GetServer().GetAddress())
	assert.Equal(t, "debug", cfg.GetServer().GetLogLevel())
	assert.True(t, cfg.GetServer().IsLogJSON())
	assert.Equal(t, "portier", cfg.GetServer().GetInstanceName())

	dir := cfg.GetDirectory()
	assert.True(t, dir.IsEnabled())
	assert.True(t, dir.IsAutoProvision())
	assert.Equal(t, "EXAMPLE", dir.GetDomain())
	assert.Equal(t, "ntlm", dir.GetBindMethod())
	assert.Equal(t, 10*time.Second, dir.GetTimeout())

	scope, err := dir.GetSearchScope()
	require.NoError(t, err)
	assert.Equal(t, ldap.ScopeSingleLevel, scope)

	ranges := cfg.GetSecurity().GetTrustedIPRanges()
	require.Len(t, ranges, 2)
	assert.Equal(t, IPRange{From: "10.0.0.0", To: "10.0.0.255"}, ranges[0])
	assert.Equal(t, uint(2), cfg.GetSecurity().GetTOTPSkew())
	assert.Equal(t, "Portier", cfg.GetSecurity().GetTOTPIssuer())

	assert.Equal(t, 10*time.Second, cfg.GetSession().GetRevalidationInterval())
	assert.Equal(t, "portier_session", cfg.GetSession().GetFullCookie())
	assert.Equal(t, "portier_2fa", cfg.GetSession().GetPendingCookie())
	assert.False(t, cfg.GetRedis().IsConfigured())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("PORTIER_SQL_DSN", "postgres://other@db/portier")
	t.Setenv("PORTIER_REDIS_ADDRESS", "redis:6379")

	cfg, err := Load(NewViper(), writeConfig(t, sampleYAML), "yaml")
	require.NoError(t, err)

	assert.Equal(t, "postgres://other@db/portier", cfg.GetSQL().GetDSN())
	assert.True(t, cfg.GetRedis().IsConfigured())
	assert.Equal(t, "redis:6379", cfg.GetRedis().GetAddress())
}

func TestMissingConnectionParametersAreFatal(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "no dsn",
			yaml: "session:\n  secret: \"0123456789abcdef0123456789abcdef\"\n",
			want: errors.ErrConfigSQLDSN,
		},
		{
			name: "no session secret",
			yaml: "sql:\n  dsn: postgres://x\n",
			want: errors.ErrConfigSessionSecret,
		},
		{
			name: "directory without server",
			yaml: "sql:\n  dsn: postgres://x\nsession:\n  secret: \"0123456789abcdef0123456789abcdef\"\ndirectory:\n  enabled: true\n  base_dn: DC=x\n",
			want: errors.ErrConfigDirectoryServer,
		},
		{
			name: "directory without base dn",
			yaml: "sql:\n  dsn: postgres://x\nsession:\n  secret: \"0123456789abcdef0123456789abcdef\"\ndirectory:\n  enabled: true\n  server_uri: ldap://dc\n",
			want: errors.ErrConfigDirectoryBaseDN,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(NewViper(), writeConfig(t, tt.yaml), "yaml")

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnknownKeysAreRejected(t *testing.T) {
	_, err := Load(NewViper(), writeConfig(t, sampleYAML+"bogus: 1\n"), "yaml")

	assert.Error(t, err)
}

func TestStructValidation(t *testing.T) {
	broken := sampleYAML + "redis:\n  db: 99\n"

	_, err := Load(NewViper(), writeConfig(t, broken), "yaml")

	assert.Error(t, err)
}

func TestNilSectionsUseDefaults(t *testing.T) {
	var cfg *File

	assert.False(t, cfg.GetDirectory().IsEnabled())
	assert.Equal(t, "%s", cfg.GetDirectory().GetBindDN())
	assert.Empty(t, cfg.GetSecurity().GetTrustedIPRanges())
	assert.Equal(t, uint(1), cfg.GetSecurity().GetTOTPSkew())
	assert.Equal(t, 5*time.Second, cfg.GetSession().GetRevalidationInterval())

	scope, err := cfg.GetDirectory().GetSearchScope()
	require.NoError(t, err)
	assert.Equal(t, ldap.ScopeWholeSubtree, scope)
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "warn", lvl)

	_, err = ParseLogLevel("chatty")
	assert.ErrorIs(t, err, errors.ErrWrongLogLevel)
}

func TestTLSRequiresCertificate(t *testing.T) {
	base := "sql:\n  dsn: postgres://x\nsession:\n  secret: \"0123456789abcdef0123456789abcdef\"\n"

	_, err := Load(NewViper(), writeConfig(t, base+"server:\n  tls:\n    enabled: true\n"), "yaml")
	assert.Error(t, err)

	cfg, err := Load(NewViper(), writeConfig(t, base+"server:\n  haproxy_v2: true\n"), "yaml")
	require.NoError(t, err)
	assert.True(t, cfg.GetServer().IsHAProxyV2())
	assert.False(t, cfg.GetServer().GetTLS().IsEnabled())
}
