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
package deps

import (
	"log/slog"
	"time"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/stats"
)

// Deps bundles the services the HTTP handlers are built from.
type Deps struct {
	Cfg     *config.File
	Logger  *slog.Logger
	Metrics *stats.Metrics

	Accounts  core.AccountLookup
	Login     *core.LoginService
	Sessions  *core.SessionManager
	TwoFactor *core.TwoFactorEnrollment
	Passwords *core.PasswordService
	Admin     *core.AdminService
}

// SessionCfg returns the session section or nil.
func (d *Deps) SessionCfg() *config.SessionSection {
	return d.Cfg.GetSession()
}

// RevalidationInterval is the period of the session stream.
func (d *Deps) RevalidationInterval() time.Duration {
	return d.SessionCfg().GetRevalidationInterval()
}

// GetLogger never returns nil.
func (d *Deps) GetLogger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}

	return d.Logger
}
