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
package corefx

import (
	"log/slog"

	"github.com/croessner/portier/server/backend"
	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/handler/deps"
	"github.com/croessner/portier/server/localcache"
	"github.com/croessner/portier/server/stats"
	"github.com/croessner/portier/server/trustnet"
	"go.uber.org/fx"
)

// Module provides the authentication and administration services.
var Module = fx.Module("corefx",
	fx.Provide(
		core.NewPasswordHasher,
		NewSharedLookup,
		NewTOTPVerifier,
		NewDirectory,
		NewClassifier,
		NewLoginService,
		NewSessionManager,
		NewTwoFactorEnrollment,
		core.NewPasswordService,
		core.NewAdminService,
		NewDeps,
	),
)

// NewSharedLookup collapses concurrent account reads of the revalidation streams.
func NewSharedLookup(accounts backend.AccountStore) *core.SharedLookup {
	return core.NewSharedLookup(accounts)
}

func NewTOTPVerifier(cfg *config.File, guard core.ReplayGuard) *core.TOTPVerifier {
	return core.NewTOTPVerifierFromConfig(cfg.GetSecurity(), guard)
}

func NewDirectory(cfg *config.File, logger *slog.Logger, metrics *stats.Metrics) *backend.DirectoryClient {
	return backend.NewDirectoryClient(cfg.GetDirectory(), logger, metrics)
}

func NewClassifier(cfg *config.File, logger *slog.Logger) *trustnet.Classifier {
	return trustnet.NewClassifier(cfg.GetSecurity().GetTrustedIPRanges(), logger)
}

// LoginParams are the collaborators of the login service.
type LoginParams struct {
	fx.In

	Accounts  backend.AccountStore
	Directory *backend.DirectoryClient
	Cache     *localcache.RoleCache
	Hasher    *core.PasswordHasher
	Logger    *slog.Logger
	Metrics   *stats.Metrics
}

func NewLoginService(p LoginParams) *core.LoginService {
	return core.NewLoginService(core.LoginDeps{
		Accounts:  p.Accounts,
		Directory: p.Directory,
		Mapper:    core.NewRoleMapper(p.Cache),
		Verifier:  p.Hasher,
		Logger:    p.Logger,
		Metrics:   p.Metrics,
	})
}

// SessionParams are the collaborators of the session manager.
type SessionParams struct {
	fx.In

	Accounts *core.SharedLookup
	Cache    *localcache.RoleCache
	Trust    *trustnet.Classifier
	TOTP     *core.TOTPVerifier
	Logger   *slog.Logger
	Metrics  *stats.Metrics
}

func NewSessionManager(p SessionParams) *core.SessionManager {
	return core.NewSessionManager(core.SessionDeps{
		Accounts: p.Accounts,
		Roles:    p.Cache,
		Trust:    p.Trust,
		TOTP:     p.TOTP,
		Logger:   p.Logger,
		Metrics:  p.Metrics,
	})
}

func NewTwoFactorEnrollment(cfg *config.File, accounts backend.AccountStore, verifier *core.TOTPVerifier) *core.TwoFactorEnrollment {
	return core.NewTwoFactorEnrollment(accounts, verifier, cfg.GetSecurity().GetTOTPIssuer())
}

// DepsParams collects everything the HTTP handlers need.
type DepsParams struct {
	fx.In

	Cfg       *config.File
	Logger    *slog.Logger
	Metrics   *stats.Metrics
	Accounts  *core.SharedLookup
	Login     *core.LoginService
	Sessions  *core.SessionManager
	TwoFactor *core.TwoFactorEnrollment
	Passwords *core.PasswordService
	Admin     *core.AdminService
}

func NewDeps(p DepsParams) *deps.Deps {
	return &deps.Deps{
		Cfg:       p.Cfg,
		Logger:    p.Logger,
		Metrics:   p.Metrics,
		Accounts:  p.Accounts,
		Login:     p.Login,
		Sessions:  p.Sessions,
		TwoFactor: p.TwoFactor,
		Passwords: p.Passwords,
		Admin:     p.Admin,
	}
}
