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
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/model"
	"github.com/croessner/portier/server/monitoring/trace"
	"github.com/croessner/portier/server/stats"
	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// directoryAttributes is the fixed attribute set requested for every account search.
var directoryAttributes = []string{
	definitions.LDAPAttrCN,
	definitions.LDAPAttrMail,
	definitions.LDAPAttrDisplayName,
	definitions.LDAPAttrGivenName,
	definitions.LDAPAttrSurname,
	definitions.LDAPAttrObjectGUID,
	definitions.LDAPAttrMemberOf,
}

// DirectoryConn is the part of *ldap.Conn the directory client uses.
type DirectoryConn interface {
	Bind(username, password string) error
	NTLMBind(domain, username, password string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(timeout time.Duration)
	Close() error
}

// DialFunc opens a directory connection.
type DialFunc func(ctx context.Context, uri string, timeout time.Duration) (DirectoryConn, error)

func dialLDAP(ctx context.Context, uri string, timeout time.Duration) (DirectoryConn, error) {
	dialer := &net.Dialer{Timeout: timeout}

	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	conn, err := ldap.DialURL(uri, ldap.DialWithDialer(dialer))
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// DirectoryClient authenticates users by binding to Active Directory with their own credentials.
type DirectoryClient struct {
	cfg     *config.DirectorySection
	dial    DialFunc
	logger  *slog.Logger
	metrics *stats.Metrics
	tracer  trace.Tracer
}

type DirectoryOption func(*DirectoryClient)

// WithDialFunc replaces the network dialer.
func WithDialFunc(dial DialFunc) DirectoryOption {
	return func(c *DirectoryClient) {
		c.dial = dial
	}
}

func NewDirectoryClient(cfg *config.DirectorySection, logger *slog.Logger, metrics *stats.Metrics, opts ...DirectoryOption) *DirectoryClient {
	client := &DirectoryClient{
		cfg:     cfg,
		dial:    dialLDAP,
		logger:  logger,
		metrics: metrics,
		tracer:  trace.New("portier/backend/directory"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Enabled reports whether directory logins are configured.
func (c *DirectoryClient) Enabled() bool {
	return c != nil && c.cfg.IsEnabled()
}

// Authenticate binds as username and returns the matching directory entry. Every failure,
// including a bind that succeeds without yielding an object GUID, is returned as an error
// classified as an authentication rejection.
func (c *DirectoryClient) Authenticate(ctx context.Context, username string, password string) (*model.DirectoryResult, error) {
	if !c.Enabled() {
		return nil, errors.ErrDirectoryDisabled
	}

	ctx, span := c.tracer.StartClient(ctx, "directory.authenticate",
		attribute.String("server", c.cfg.GetServerURI()),
		attribute.String("bind_method", c.cfg.GetBindMethod()),
	)

	defer span.End()

	var timer *prometheus.Timer

	if c.metrics != nil {
		timer = prometheus.NewTimer(c.metrics.DirectoryDuration)
	}

	result, err := c.authenticate(ctx, username, password)

	if timer != nil {
		timer.ObserveDuration()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directory authentication failed")

		c.count(definitions.ResultFail)

		level.Info(c.logger).Log(
			definitions.LogKeyMsg, "Directory authentication failed",
			definitions.LogKeyUsername, username,
			definitions.LogKeyLDAPServer, c.cfg.GetServerURI(),
			definitions.LogKeyError, err,
		)

		return nil, err
	}

	c.count(definitions.ResultSuccess)

	return result, nil
}

func (c *DirectoryClient) count(result string) {
	if c.metrics != nil {
		c.metrics.DirectoryRequestsTotal.WithLabelValues(result).Inc()
	}
}

func (c *DirectoryClient) authenticate(ctx context.Context, username string, password string) (*model.DirectoryResult, error) {
	if username == "" || password == "" {
		return nil, errors.ErrDirectoryUnavailable.WithDetail("empty credentials")
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.ErrDirectoryUnavailable.WithDetail(err.Error())
	}

	scope, err := c.cfg.GetSearchScope()
	if err != nil {
		return nil, errors.ErrDirectoryUnavailable.WithDetail(err.Error())
	}

	conn, err := c.dial(ctx, c.cfg.GetServerURI(), c.cfg.GetTimeout())
	if err != nil {
		return nil, errors.ErrDirectoryUnavailable.WithDetail(err.Error())
	}

	defer conn.Close()

	conn.SetTimeout(c.cfg.GetTimeout())

	if err = c.bind(conn, username, password); err != nil {
		return nil, errors.ErrDirectoryUnavailable.WithDetail(err.Error())
	}

	request := ldap.NewSearchRequest(
		c.cfg.GetBaseDN(),
		scope,
		ldap.NeverDerefAliases,
		0,
		int(c.cfg.GetTimeout().Seconds()),
		false,
		"(sAMAccountName="+ldap.EscapeFilter(username)+")",
		directoryAttributes,
		nil,
	)

	searchResult, err := conn.Search(request)
	if err != nil {
		return nil, errors.ErrDirectoryUnavailable.WithDetail(err.Error())
	}

	if len(searchResult.Entries) == 0 {
		return nil, errors.ErrDirectoryNoEntry
	}

	result := c.assemble(searchResult.Entries[0])
	if result == nil {
		return nil, errors.ErrDirectoryNoGUID
	}

	return result, nil
}

func (c *DirectoryClient) bind(conn DirectoryConn, username string, password string) error {
	if c.cfg.GetBindMethod() == definitions.BindMethodSimple {
		return conn.Bind(strings.ReplaceAll(c.cfg.GetBindDN(), "%s", ldap.EscapeDN(username)), password)
	}

	return conn.NTLMBind(c.cfg.GetDomain(), username, password)
}

// assemble turns the first search entry into a result. It returns nil without a decodable object GUID.
func (c *DirectoryClient) assemble(entry *ldap.Entry) *model.DirectoryResult {
	guid, ok := DecodeObjectGUID(entry.GetRawAttributeValue(definitions.LDAPAttrObjectGUID))
	if !ok {
		return nil
	}

	return &model.DirectoryResult{
		GUID:          guid,
		AutoProvision: c.cfg.IsAutoProvision(),
		Groups:        FilterGroups(entry.GetAttributeValues(definitions.LDAPAttrMemberOf), c.cfg.GetGroupBaseOU()),
		CommonName:    entry.GetAttributeValue(definitions.LDAPAttrCN),
		Mail:          entry.GetAttributeValue(definitions.LDAPAttrMail),
		DisplayName:   entry.GetAttributeValue(definitions.LDAPAttrDisplayName),
		GivenName:     entry.GetAttributeValue(definitions.LDAPAttrGivenName),
		Surname:       entry.GetAttributeValue(definitions.LDAPAttrSurname),
	}
}

// DecodeObjectGUID converts the raw objectGUID attribute. Active Directory stores the first
// three GUID fields little-endian.
func DecodeObjectGUID(raw []byte) (uuid.UUID, bool) {
	if len(raw) != 16 {
		return uuid.Nil, false
	}

	var guid uuid.UUID

	guid[0], guid[1], guid[2], guid[3] = raw[3], raw[2], raw[1], raw[0]
	guid[4], guid[5] = raw[5], raw[4]
	guid[6], guid[7] = raw[7], raw[6]

	copy(guid[8:], raw[8:])

	return guid, true
}

// EncodeObjectGUID is the inverse of DecodeObjectGUID.
func EncodeObjectGUID(guid uuid.UUID) []byte {
	raw := make([]byte, 16)

	raw[0], raw[1], raw[2], raw[3] = guid[3], guid[2], guid[1], guid[0]
	raw[4], raw[5] = guid[5], guid[4]
	raw[6], raw[7] = guid[7], guid[6]

	copy(raw[8:], guid[8:])

	return raw
}

// FilterGroups keeps the memberOf values below groupBaseOU and reduces them to bare group names.
// Without a configured OU every group is kept and reduced to its first RDN value.
func FilterGroups(memberOf []string, groupBaseOU string) []string {
	groups := make([]string, 0, len(memberOf))

	for _, dn := range memberOf {
		if groupBaseOU == "" {
			if name := firstRDNValue(dn); name != "" {
				groups = append(groups, name)
			}

			continue
		}

		if !strings.Contains(dn, groupBaseOU) {
			continue
		}

		name := strings.ReplaceAll(dn, ","+groupBaseOU, "")
		name = strings.ReplaceAll(name, "CN=", "")

		groups = append(groups, name)
	}

	return groups
}

func firstRDNValue(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return ""
	}

	return parsed.RDNs[0].Attributes[0].Value
}

func (c *DirectoryClient) String() string {
	return fmt.Sprintf("DirectoryClient{%s}", c.cfg)
}
