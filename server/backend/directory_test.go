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

package backend

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/stats"
	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectoryConn struct {
	bindErr   error
	searchErr error
	entries   []*ldap.Entry

	ntlmDomain string
	boundAs    string
	request    *ldap.SearchRequest
	closed     bool
}

func (f *fakeDirectoryConn) Bind(username, _ string) error {
	f.boundAs = username

	return f.bindErr
}

func (f *fakeDirectoryConn) NTLMBind(domain, username, _ string) error {
	f.ntlmDomain = domain
	f.boundAs = username

	return f.bindErr
}

func (f *fakeDirectoryConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.request = req

	if f.searchErr != nil {
		return nil, f.searchErr
	}

	return &ldap.SearchResult{Entries: f.entries}, nil
}

func (f *fakeDirectoryConn) SetTimeout(time.Duration) {}

func (f *fakeDirectoryConn) Close() error {
	f.closed = true

	return nil
}

var testGUID = uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

func directoryConfig() *config.DirectorySection {
	return &config.DirectorySection{
		Enabled:       true,
		AutoProvision: true,
		ServerURI:     "ldap://dc.example.test",
		Domain:        "EXAMPLE",
		BaseDN:        "DC=example,DC=test",
		GroupBaseOU:   "OU=Groups,DC=example,DC=test",
	}
}

func userEntry(withGUID bool) *ldap.Entry {
	attrs := map[string][]string{
		"cn":        {"jdoe"},
		"givenName": {"John"},
		"sn":        {"Doe"},
		"memberOf": {
			"CN=Admins,OU=Groups,DC=example,DC=test",
			"CN=Domain Users,CN=Users,DC=example,DC=test",
			"CN=Developers,OU=Groups,DC=example,DC=test",
		},
	}

	if withGUID {
		attrs["objectGUID"] = []string{string(EncodeObjectGUID(testGUID))}
	}

	return ldap.NewEntry("CN=jdoe,OU=People,DC=example,DC=test", attrs)
}

func newTestDirectoryClient(cfg *config.DirectorySection, conn *fakeDirectoryConn, dialErr error) (*DirectoryClient, *stats.Metrics) {
	metrics := stats.NewMetrics(prometheus.NewRegistry())

	client := NewDirectoryClient(cfg, nil, metrics, WithDialFunc(func(context.Context, string, time.Duration) (DirectoryConn, error) {
		if dialErr != nil {
			return nil, dialErr
		}

		return conn, nil
	}))

	return client, metrics
}

func TestDirectoryAuthenticateSuccess(t *testing.T) {
	conn := &fakeDirectoryConn{entries: []*ldap.Entry{userEntry(true)}}
	client, metrics := newTestDirectoryClient(directoryConfig(), conn, nil)

	result, err := client.Authenticate(context.Background(), "jdoe", "secret")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, testGUID, result.GUID)
	assert.True(t, result.AutoProvision)
	assert.Equal(t, []string{"Admins", "Developers"}, result.Groups)
	assert.Equal(t, "John", result.GivenName)
	assert.Equal(t, "Doe", result.Surname)
	assert.Equal(t, "", result.Mail)
	assert.Equal(t, "", result.DisplayName)

	assert.Equal(t, "EXAMPLE", conn.ntlmDomain)
	assert.Equal(t, "jdoe", conn.boundAs)
	assert.Equal(t, "(sAMAccountName=jdoe)", conn.request.Filter)
	assert.Equal(t, ldap.ScopeWholeSubtree, conn.request.Scope)
	assert.Equal(t, "DC=example,DC=test", conn.request.BaseDN)
	assert.ElementsMatch(t, []string{"cn", "mail", "displayName", "givenName", "sn", "objectGUID", "memberOf"}, conn.request.Attributes)
	assert.True(t, conn.closed)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DirectoryRequestsTotal.WithLabelValues("success")))
}

func TestDirectoryAuthenticateEscapesFilter(t *testing.T) {
	conn := &fakeDirectoryConn{entries: []*ldap.Entry{userEntry(true)}}
	client, _ := newTestDirectoryClient(directoryConfig(), conn, nil)

	_, err := client.Authenticate(context.Background(), "j*)(cn=*", "secret")
	require.NoError(t, err)

	assert.Equal(t, `(sAMAccountName=j\2a\29\28cn=\2a)`, conn.request.Filter)
}

func TestDirectorySimpleBind(t *testing.T) {
	cfg := directoryConfig()
	cfg.BindMethod = "simple"
	cfg.BindDN = "%s@example.test"

	conn := &fakeDirectoryConn{entries: []*ldap.Entry{userEntry(true)}}
	client, _ := newTestDirectoryClient(cfg, conn, nil)

	_, err := client.Authenticate(context.Background(), "jdoe", "secret")
	require.NoError(t, err)

	assert.Equal(t, "jdoe@example.test", conn.boundAs)
	assert.Empty(t, conn.ntlmDomain)
}

func TestDirectoryAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func() *config.DirectorySection
		conn    *fakeDirectoryConn
		dialErr error
		pass    string
		want    error
	}{
		{
			name: "disabled",
			cfg: func() *config.DirectorySection {
				c := directoryConfig()
				c.Enabled = false

				return c
			},
			conn: &fakeDirectoryConn{},
			pass: "secret",
			want: errors.ErrDirectoryDisabled,
		},
		{
			name:    "unreachable",
			cfg:     directoryConfig,
			conn:    &fakeDirectoryConn{},
			dialErr: stderrors.New("connection refused"),
			pass:    "secret",
			want:    errors.ErrDirectoryUnavailable,
		},
		{
			name: "wrong credentials",
			cfg:  directoryConfig,
			conn: &fakeDirectoryConn{bindErr: ldap.NewError(ldap.LDAPResultInvalidCredentials, stderrors.New("invalid credentials"))},
			pass: "wrong",
			want: errors.ErrDirectoryUnavailable,
		},
		{
			name: "search failure",
			cfg:  directoryConfig,
			conn: &fakeDirectoryConn{searchErr: stderrors.New("operations error")},
			pass: "secret",
			want: errors.ErrDirectoryUnavailable,
		},
		{
			name: "no entry",
			cfg:  directoryConfig,
			conn: &fakeDirectoryConn{},
			pass: "secret",
			want: errors.ErrDirectoryNoEntry,
		},
		{
			name: "entry without guid",
			cfg:  directoryConfig,
			conn: &fakeDirectoryConn{entries: []*ldap.Entry{userEntry(false)}},
			pass: "secret",
			want: errors.ErrDirectoryNoGUID,
		},
		{
			name: "empty password",
			cfg:  directoryConfig,
			conn: &fakeDirectoryConn{entries: []*ldap.Entry{userEntry(true)}},
			pass: "",
			want: errors.ErrDirectoryUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestDirectoryClient(tt.cfg(), tt.conn, tt.dialErr)

			result, err := client.Authenticate(context.Background(), "jdoe", tt.pass)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, errors.ErrAuthenticationRejected)
		})
	}
}

func TestDecodeObjectGUIDMixedEndian(t *testing.T) {
	raw := []byte{
		0x5b, 0xad, 0x8f, 0x0f,
		0xcb, 0xd9,
		0x9f, 0x46,
		0xa1, 0x65, 0x70, 0x86, 0x77, 0x28, 0x95, 0x0e,
	}

	guid, ok := DecodeObjectGUID(raw)
	require.True(t, ok)
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", guid.String())
	assert.Equal(t, raw, EncodeObjectGUID(guid))

	_, ok = DecodeObjectGUID(raw[:15])
	assert.False(t, ok)
}

func TestFilterGroups(t *testing.T) {
	memberOf := []string{
		"CN=Admins,OU=Groups,DC=example,DC=test",
		"CN=Other,OU=Elsewhere,DC=example,DC=test",
	}

	assert.Equal(t, []string{"Admins"}, FilterGroups(memberOf, "OU=Groups,DC=example,DC=test"))
	assert.Equal(t, []string{"Admins", "Other"}, FilterGroups(memberOf, ""))
	assert.Empty(t, FilterGroups(nil, "OU=Groups"))
}
