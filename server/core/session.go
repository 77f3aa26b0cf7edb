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

package core

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/model"
	"github.com/croessner/portier/server/stats"
)

// Claims is the identity carried by one session scope.
type Claims struct {
	AccountID  string
	Roles      []string
	Persistent bool
}

// SessionTransport stores claims for the current request. Implementations are bound to one
// request and write their effect to its response.
type SessionTransport interface {
	IssueClaims(scope definitions.Scope, claims Claims, persistent bool) error
	ClearScope(scope definitions.Scope) error
	ReadClaims(scope definitions.Scope) (*Claims, bool)
}

// SessionState is one of Anonymous, PendingTwoFactor or Authenticated.
type SessionState interface {
	State() string
	sessionState()
}

// Anonymous carries no identity.
type Anonymous struct{}

// PendingTwoFactor is a login that passed the first factor and waits for a TOTP code.
type PendingTwoFactor struct {
	AccountID  int64
	Persistent bool
}

// Authenticated is a full login.
type Authenticated struct {
	AccountID  int64
	Roles      []string
	Persistent bool
}

func (Anonymous) State() string        { return "anonymous" }
func (PendingTwoFactor) State() string { return "two_factor_required" }
func (Authenticated) State() string    { return "authenticated" }

func (Anonymous) sessionState()        {}
func (PendingTwoFactor) sessionState() {}
func (Authenticated) sessionState()    {}

// HasRole reports whether the session holds the role. Names compare like normalized names.
func (a Authenticated) HasRole(name string) bool {
	for _, role := range a.Roles {
		if strings.EqualFold(role, name) {
			return true
		}
	}

	return false
}

// TrustClassifier decides whether a remote address is exempt from the second factor.
type TrustClassifier interface {
	IsTrustedOrigin(remoteAddress string) bool
}

// SessionDeps are the collaborators of a SessionManager.
type SessionDeps struct {
	Accounts AccountLookup
	Roles    RoleLookup
	Trust    TrustClassifier
	TOTP     *TOTPVerifier
	Logger   *slog.Logger
	Metrics  *stats.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

// SessionManager moves a client between the session states.
type SessionManager struct {
	deps SessionDeps
}

func NewSessionManager(deps SessionDeps) *SessionManager {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &SessionManager{deps: deps}
}

// ShouldRequireTwoFactor is true if the account enabled TOTP and the request does not come
// from a trusted network.
func (m *SessionManager) ShouldRequireTwoFactor(account *model.Account, remoteAddress string) bool {
	if account == nil || !account.TwoFactorEnabled {
		return false
	}

	if m.deps.Trust == nil {
		return true
	}

	return !m.deps.Trust.IsTrustedOrigin(remoteAddress)
}

// FullClaims builds the claims of a full session. A role claim is the normalized role name.
// Roles unknown to the cache are skipped.
func (m *SessionManager) FullClaims(account *model.Account, persistent bool) Claims {
	roles := make([]string, 0, len(account.Roles))

	for _, id := range account.ActiveRoleIDs() {
		if m.deps.Roles == nil {
			break
		}

		if role, found := m.deps.Roles.FindByID(id); found {
			roles = append(roles, role.NormalizedName)
		}
	}

	return Claims{AccountID: account.IDString(), Roles: roles, Persistent: persistent}
}

// IssueFullSession drops any pending second factor session and writes the full session.
func (m *SessionManager) IssueFullSession(t SessionTransport, account *model.Account, persistent bool) error {
	if err := t.ClearScope(definitions.ScopePending); err != nil {
		return err
	}

	return t.IssueClaims(definitions.ScopeFull, m.FullClaims(account, persistent), persistent)
}

// IssuePendingSession writes the account id to the pending scope. The full scope is left alone.
// persistent is kept so the completed login can honor it.
func (m *SessionManager) IssuePendingSession(t SessionTransport, account *model.Account, persistent bool) error {
	return t.IssueClaims(definitions.ScopePending, Claims{AccountID: account.IDString(), Persistent: persistent}, false)
}

// CompletePendingSession checks the TOTP code of the pending account and, if it is valid,
// issues the full session. On failure no session is touched.
func (m *SessionManager) CompletePendingSession(ctx context.Context, t SessionTransport, pendingAccountID string, code string, persistent bool) (*model.Account, error) {
	account, err := m.completePending(ctx, t, pendingAccountID, code, persistent)

	result := definitions.ResultSuccess
	if err != nil {
		result = definitions.ResultFail
	}

	if m.deps.Metrics != nil {
		m.deps.Metrics.TwoFactorTotal.WithLabelValues(result).Inc()
	}

	return account, err
}

func (m *SessionManager) completePending(ctx context.Context, t SessionTransport, pendingAccountID string, code string, persistent bool) (*model.Account, error) {
	id, ok := model.ParseAccountID(pendingAccountID)
	if !ok {
		return nil, errors.ErrNoPendingSession
	}

	account, err := m.deps.Accounts.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return nil, errors.ErrNoPendingSession
		}

		return nil, err
	}

	if !account.TwoFactorEnabled {
		return nil, errors.ErrTOTPCodeInvalid.WithDetail("two-factor authentication is not enabled")
	}

	if err = m.deps.TOTP.Verify(ctx, account.ID, account.TwoFactorSecret, code); err != nil {
		if stderrors.Is(err, errors.ErrTwoFactorNotEnabled) {
			return nil, errors.ErrTOTPCodeInvalid.WithDetail(err.Error())
		}

		return nil, err
	}

	if err = CheckPolicy(account, m.deps.Now()); err != nil {
		return nil, err
	}

	if err = m.IssueFullSession(t, account, persistent); err != nil {
		return nil, err
	}

	return account, nil
}

// Logout clears the full session. A pending second factor session survives.
func (m *SessionManager) Logout(t SessionTransport) error {
	return t.ClearScope(definitions.ScopeFull)
}

// State decodes the session of the request without consulting the account store. A full
// session wins over a pending one.
func (m *SessionManager) State(t SessionTransport) SessionState {
	if claims, found := t.ReadClaims(definitions.ScopeFull); found {
		if id, ok := model.ParseAccountID(claims.AccountID); ok {
			return Authenticated{AccountID: id, Roles: claims.Roles, Persistent: claims.Persistent}
		}
	}

	if claims, found := t.ReadClaims(definitions.ScopePending); found {
		if id, ok := model.ParseAccountID(claims.AccountID); ok {
			return PendingTwoFactor{AccountID: id, Persistent: claims.Persistent}
		}
	}

	return Anonymous{}
}

// Verify applies the revalidation rule once to the current request. A full session whose
// account is gone or inactive is cleared and reported as Anonymous.
func (m *SessionManager) Verify(ctx context.Context, t SessionTransport) SessionState {
	state := m.State(t)

	full, ok := state.(Authenticated)
	if !ok {
		claims, found := t.ReadClaims(definitions.ScopeFull)
		if found && claims != nil {
			m.revoke(t, claims.AccountID, errors.ErrSessionInvalid)
		}

		return state
	}

	if err := CheckAccount(ctx, m.deps.Accounts, full.AccountID); err != nil {
		m.revoke(t, full.AccountID, err)

		return Anonymous{}
	}

	return full
}

func (m *SessionManager) revoke(t SessionTransport, accountID any, reason error) {
	if err := t.ClearScope(definitions.ScopeFull); err != nil {
		level.Error(m.deps.Logger).Log(
			definitions.LogKeyMsg, "Failed to clear session",
			definitions.LogKeyAccountID, accountID,
			definitions.LogKeyError, err,
		)
	}

	if m.deps.Metrics != nil {
		m.deps.Metrics.SessionsRevokedTotal.Inc()
	}

	level.Info(m.deps.Logger).Log(
		definitions.LogKeyMsg, "Session revoked",
		definitions.LogKeyAccountID, accountID,
		definitions.LogKeyReason, reason,
	)
}
