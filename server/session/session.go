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

// Package session stores the two session scopes in signed and encrypted cookies.
package session

import (
	"encoding/gob"
	"net/http"
	"time"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/definitions"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func init() {
	gob.Register([]string{})
}

// NewStore returns the cookie store both scopes are kept in. The store accepts cookies up
// to the persistent session lifetime.
func NewStore(cfg *config.SessionSection) sessions.Store {
	keys := [][]byte{[]byte(cfg.GetSecret())}

	if encryptionKey := cfg.GetEncryptionKey(); encryptionKey != "" {
		keys = append(keys, []byte(encryptionKey))
	}

	store := cookie.NewStore(keys...)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.GetMaxAge().Seconds()),
		Secure:   cfg.IsSecure(),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	return store
}

// Middleware loads both scopes for every request.
func Middleware(cfg *config.SessionSection, store sessions.Store) gin.HandlerFunc {
	return sessions.SessionsMany([]string{cfg.GetFullCookie(), cfg.GetPendingCookie()}, store)
}

// Transport implements core.SessionTransport for one gin request.
type Transport struct {
	ctx *gin.Context
	cfg *config.SessionSection
	now func() time.Time
}

var _ core.SessionTransport = (*Transport)(nil)

func NewTransport(ctx *gin.Context, cfg *config.SessionSection) *Transport {
	return &Transport{ctx: ctx, cfg: cfg, now: time.Now}
}

func (t *Transport) cookieName(scope definitions.Scope) string {
	if scope == definitions.ScopePending {
		return t.cfg.GetPendingCookie()
	}

	return t.cfg.GetFullCookie()
}

func (t *Transport) options(maxAge int) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   t.cfg.IsSecure(),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// IssueClaims replaces the content of the scope. A persistent full scope outlives the
// browser session, a non persistent one is a session cookie. The pending scope always
// expires after the pending lifetime.
func (t *Transport) IssueClaims(scope definitions.Scope, claims core.Claims, persistent bool) error {
	session := sessions.DefaultMany(t.ctx, t.cookieName(scope))
	session.Clear()

	session.Set(definitions.ClaimAccountID, claims.AccountID)
	session.Set(definitions.ClaimPersistent, claims.Persistent)
	session.Set(definitions.ClaimIssuedAt, t.now().Unix())

	if len(claims.Roles) > 0 {
		session.Set(definitions.ClaimRoles, claims.Roles)
	}

	maxAge := 0

	switch {
	case scope == definitions.ScopePending:
		maxAge = int(t.cfg.GetPendingMaxAge().Seconds())
	case persistent:
		maxAge = int(t.cfg.GetMaxAge().Seconds())
	}

	session.Options(t.options(maxAge))

	return session.Save()
}

// ClearScope deletes the cookie of the scope.
func (t *Transport) ClearScope(scope definitions.Scope) error {
	session := sessions.DefaultMany(t.ctx, t.cookieName(scope))

	if session.Get(definitions.ClaimAccountID) == nil {
		return nil
	}

	session.Clear()
	session.Options(t.options(-1))

	return session.Save()
}

// ReadClaims returns the claims of the scope. A pending scope older than its lifetime is
// treated as absent.
func (t *Transport) ReadClaims(scope definitions.Scope) (*core.Claims, bool) {
	session := sessions.DefaultMany(t.ctx, t.cookieName(scope))

	accountID, ok := session.Get(definitions.ClaimAccountID).(string)
	if !ok || accountID == "" {
		return nil, false
	}

	if scope == definitions.ScopePending {
		issuedAt, ok := session.Get(definitions.ClaimIssuedAt).(int64)
		if !ok || t.now().Sub(time.Unix(issuedAt, 0)) > t.cfg.GetPendingMaxAge() {
			return nil, false
		}
	}

	claims := &core.Claims{AccountID: accountID}

	if roles, ok := session.Get(definitions.ClaimRoles).([]string); ok {
		claims.Roles = roles
	}

	if persistent, ok := session.Get(definitions.ClaimPersistent).(bool); ok {
		claims.Persistent = persistent
	}

	return claims, true
}
