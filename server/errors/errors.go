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

package errors

import (
	"errors"
)

type DetailedError struct {
	err      error
	parent   error
	guid     string
	details  string
	instance string
}

func (d *DetailedError) Error() string {
	return d.err.Error()
}

// Unwrap exposes the error class this error belongs to, so errors.Is matches both.
func (d *DetailedError) Unwrap() error {
	return d.parent
}

// Is reports whether target is the same detailed error, ignoring attached request details.
func (d *DetailedError) Is(target error) bool {
	t, ok := target.(*DetailedError)
	if !ok {
		return false
	}

	return d.err == t.err
}

func (d *DetailedError) WithGUID(guid string) *DetailedError {
	if d == nil {
		return nil
	}

	c := d.clone()
	c.guid = guid

	return c
}

func (d *DetailedError) WithDetail(detail string) *DetailedError {
	if d == nil {
		return nil
	}

	c := d.clone()
	c.details = detail

	return c
}

func (d *DetailedError) WithInstance(instance string) *DetailedError {
	if d == nil {
		return nil
	}

	c := d.clone()
	c.instance = instance

	return c
}

func (d *DetailedError) GetGUID() string {
	return d.guid
}

func (d *DetailedError) GetDetails() string {
	return d.details
}

func (d *DetailedError) GetInstance() string {
	return d.instance
}

func (d *DetailedError) clone() *DetailedError {
	c := *d

	return &c
}

func NewDetailedError(err string) *DetailedError {
	return &DetailedError{err: errors.New(err)}
}

func newClassified(err string, parent error) *DetailedError {
	return &DetailedError{err: errors.New(err), parent: parent}
}

// auth.

// ErrAuthenticationRejected is the only authentication failure a client ever sees.
var ErrAuthenticationRejected = errors.New("authentication rejected")

var (
	ErrAccountNotFound         = newClassified("account_not_found", ErrAuthenticationRejected)
	ErrWrongPassword           = newClassified("wrong_password", ErrAuthenticationRejected)
	ErrAccountInactive         = newClassified("account_inactive", ErrAuthenticationRejected)
	ErrAccountLocked           = newClassified("account_locked", ErrAuthenticationRejected)
	ErrTOTPCodeInvalid         = newClassified("totp_code_invalid", ErrAuthenticationRejected)
	ErrTOTPCodeReused          = newClassified("totp_code_reused", ErrAuthenticationRejected)
	ErrNoPendingSession        = newClassified("no_pending_session", ErrAuthenticationRejected)
	ErrProvisioningDisabled    = newClassified("auto_provisioning_disabled", ErrAuthenticationRejected)
	ErrTwoFactorNotEnabled     = errors.New("two-factor authentication is not enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication is already enabled")
	ErrNotLocalAccount         = errors.New("operation requires a local account")
)

// directory.

var (
	ErrDirectoryUnavailable = newClassified("ldap_unavailable", ErrAuthenticationRejected)
	ErrDirectoryDisabled    = newClassified("ldap_disabled", ErrAuthenticationRejected)
	ErrDirectoryNoEntry     = newClassified("ldap_no_search_result", ErrAuthenticationRejected)
	ErrDirectoryNoGUID      = newClassified("ldap_no_object_guid", ErrAuthenticationRejected)
)

// store.

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUsernameTaken  = errors.New("username already exists")
	ErrRoleNotFound   = errors.New("role not found")
)

// session.

var (
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionRevoked = errors.New("session revoked")
)

// config.

var (
	ErrConfigDirectoryServer = errors.New("directory enabled but no 'directory::server_uri' configured")
	ErrConfigDirectoryBaseDN = errors.New("directory enabled but no 'directory::base_dn' configured")
	ErrConfigSQLDSN          = errors.New("no 'sql::dsn' configured")
	ErrConfigSessionSecret   = errors.New("no 'session::secret' configured")
	ErrInvalidIPRange        = errors.New("invalid trusted ip range")
	ErrWrongLogLevel         = errors.New("wrong log level")
	ErrWrongLDAPScope        = errors.New("wrong LDAP scope")
)

// password.

var (
	ErrPasswordPolicy     = errors.New("password does not satisfy the length policy")
	ErrPasswordMismatch   = errors.New("password confirmation does not match")
	ErrPasswordHashFormat = errors.New("unsupported password hash format")
	ErrPasswordEncoding   = errors.New("password encoding error")
)
