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

package definitions

import "time"

// Version of the application.
const Version = "1.0.0"

// NotAvailable is logged for empty values.
const NotAvailable = "N/A"

const (
	// LogKeyGUID represents the request identifier used in log entries.
	LogKeyGUID = "session"

	// LogKeyMsg represents the message content in log entries.
	LogKeyMsg = "msg"

	// LogKeyError represents error information in log entries.
	LogKeyError = "error"

	// LogKeyErrorDetails represents additional error details in log entries.
	LogKeyErrorDetails = "error_details"

	// LogKeyInstance represents instance identification in log entries.
	LogKeyInstance = "instance"

	// LogKeyUsername represents the username being used for authentication.
	LogKeyUsername = "username"

	// LogKeyAccountID represents the numeric account identifier.
	LogKeyAccountID = "account_id"

	// LogKeyClientIP represents the IP address of the client.
	LogKeyClientIP = "client_ip"

	// LogKeyAuthPath is the login path that was taken (local or directory).
	LogKeyAuthPath = "auth_path"

	// LogKeyReason is the internal reason of a rejection. It is never sent to the client.
	LogKeyReason = "reason"

	// LogKeyLDAPServer is the directory server URI.
	LogKeyLDAPServer = "ldap_server"

	// LogKeyRole is a role name.
	LogKeyRole = "role"

	// LogKeyUriPath is the request path.
	LogKeyUriPath = "uri_path"

	// LogKeyMethod is the HTTP method.
	LogKeyMethod = "method"

	// LogKeyStatus is the HTTP status.
	LogKeyStatus = "status"

	// LogKeyProtocol is the HTTP protocol version.
	LogKeyProtocol = "protocol"

	// LogKeyUserAgent is the client user agent.
	LogKeyUserAgent = "user_agent"

	// LogKeyLatency is the request latency.
	LogKeyLatency = "latency"
)

const (
	// CtxGUIDKey is the gin context key of the request GUID.
	CtxGUIDKey = "guid"

	// CtxClaimsKey is the gin context key of verified full-scope claims.
	CtxClaimsKey = "claims"
)

// Login paths.
const (
	AuthPathLocal     = "local"
	AuthPathDirectory = "directory"
	AuthPathTOTP      = "totp"
)

// Metric label values.
const (
	ResultSuccess   = "success"
	ResultFail      = "fail"
	ResultTwoFactor = "two_factor"
	ResultError     = "error"
)

// Directory attribute names.
const (
	LDAPAttrCN          = "cn"
	LDAPAttrMail        = "mail"
	LDAPAttrDisplayName = "displayName"
	LDAPAttrGivenName   = "givenName"
	LDAPAttrSurname     = "sn"
	LDAPAttrObjectGUID  = "objectGUID"
	LDAPAttrMemberOf    = "memberOf"
)

// Directory bind methods.
const (
	BindMethodNTLM   = "ntlm"
	BindMethodSimple = "simple"
)

// Directory search scopes.
const (
	LDAPScopeBase = "base"
	LDAPScopeOne  = "one"
	LDAPScopeSub  = "sub"
)

// Session defaults.
const (
	// DefaultFullCookie is the cookie name of the full session scope.
	DefaultFullCookie = "portier_session"

	// DefaultPendingCookie is the cookie name of the pending second factor scope.
	DefaultPendingCookie = "portier_2fa"

	// DefaultRevalidationInterval is the period between two session checks.
	DefaultRevalidationInterval = 5 * time.Second

	// DefaultSessionMaxAge is the lifetime of a persistent full session.
	DefaultSessionMaxAge = 14 * 24 * time.Hour

	// DefaultPendingMaxAge is the lifetime of a pending second factor session.
	DefaultPendingMaxAge = 5 * time.Minute

	// ClaimAccountID is the session key holding the account id.
	ClaimAccountID = "account_id"

	// ClaimRoles is the session key holding the role names.
	ClaimRoles = "roles"

	// ClaimPersistent remembers whether the pending login asked to be remembered.
	ClaimPersistent = "persistent"

	// ClaimIssuedAt is the unix time a scope was written.
	ClaimIssuedAt = "issued_at"
)

// TOTP defaults.
const (
	DefaultTOTPIssuer = "Portier"
	DefaultTOTPSkew   = 1
	TOTPPeriod        = 30
	TOTPSecretSize    = 20
)

// Password policy.
const (
	SaltSize          = 32
	PasswordMinLength = 6
	PasswordMaxLength = 100
)

// RoleAdministrator is the normalized role name required for administrative routes.
const RoleAdministrator = "ADMINISTRATOR"

// RedisReplayPrefix prefixes keys of used TOTP time steps.
const RedisReplayPrefix = "portier:totp:used:"
