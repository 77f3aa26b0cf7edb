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
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/go-ldap/ldap/v3"
)

// DirectorySection configures the Active Directory / LDAP login path.
type DirectorySection struct {
	Enabled       bool          `mapstructure:"enabled"`
	AutoProvision bool          `mapstructure:"auto_provision"`
	ServerURI     string        `mapstructure:"server_uri" validate:"omitempty,url"`
	Domain        string        `mapstructure:"domain" validate:"omitempty,printascii"`
	BindDN        string        `mapstructure:"bind_dn" validate:"omitempty,printascii"`
	BaseDN        string        `mapstructure:"base_dn" validate:"omitempty,printascii"`
	GroupBaseOU   string        `mapstructure:"group_base_ou" validate:"omitempty,printascii"`
	BindMethod    string        `mapstructure:"bind_method" validate:"omitempty,oneof=ntlm simple"`
	SearchScope   string        `mapstructure:"search_scope" validate:"omitempty,oneof=base one sub"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"omitempty,max=5m"`
}

func (d *DirectorySection) String() string {
	if d == nil {
		return "DirectorySection: <nil>"
	}

	return fmt.Sprintf("DirectorySection: {Enabled:%t ServerURI:%s BaseDN:%s BindMethod:%s}",
		d.Enabled, d.ServerURI, d.BaseDN, d.GetBindMethod())
}

func (d *DirectorySection) IsEnabled() bool {
	if d == nil {
		return false
	}

	return d.Enabled
}

func (d *DirectorySection) IsAutoProvision() bool {
	if d == nil {
		return false
	}

	return d.AutoProvision
}

func (d *DirectorySection) GetServerURI() string {
	if d == nil {
		return ""
	}

	return d.ServerURI
}

func (d *DirectorySection) GetDomain() string {
	if d == nil {
		return ""
	}

	return d.Domain
}

// GetBindDN returns the bind name template for simple binds. A "%s" is replaced by the username.
func (d *DirectorySection) GetBindDN() string {
	if d == nil || d.BindDN == "" {
		return "%s"
	}

	return d.BindDN
}

func (d *DirectorySection) GetBaseDN() string {
	if d == nil {
		return ""
	}

	return d.BaseDN
}

func (d *DirectorySection) GetGroupBaseOU() string {
	if d == nil {
		return ""
	}

	return d.GroupBaseOU
}

func (d *DirectorySection) GetBindMethod() string {
	if d == nil || d.BindMethod == "" {
		return definitions.BindMethodNTLM
	}

	return d.BindMethod
}

// GetSearchScope maps the configured scope name to the ldap package constant.
func (d *DirectorySection) GetSearchScope() (int, error) {
	scope := definitions.LDAPScopeSub
	if d != nil && d.SearchScope != "" {
		scope = strings.ToLower(d.SearchScope)
	}

	switch scope {
	case definitions.LDAPScopeBase:
		return ldap.ScopeBaseObject, nil
	case definitions.LDAPScopeOne:
		return ldap.ScopeSingleLevel, nil
	case definitions.LDAPScopeSub:
		return ldap.ScopeWholeSubtree, nil
	default:
		return 0, fmt.Errorf("%w: <%s>", errors.ErrWrongLDAPScope, scope)
	}
}

func (d *DirectorySection) GetTimeout() time.Duration {
	if d == nil || d.Timeout <= 0 {
		return 10 * time.Second
	}

	return d.Timeout
}
