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

// Package core implements the login paths, the second factor and the session life cycle.
package core

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/croessner/portier/server/backend"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/model"
	"github.com/croessner/portier/server/monitoring/trace"
	"github.com/croessner/portier/server/stats"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DirectoryAuthenticator authenticates against the directory. Any failure is an error
// wrapping errors.ErrAuthenticationRejected.
type DirectoryAuthenticator interface {
	Authenticate(ctx context.Context, username string, password string) (*model.DirectoryResult, error)
}

// LoginDeps are the collaborators of a LoginService.
type LoginDeps struct {
	Accounts  backend.AccountStore
	Directory DirectoryAuthenticator
	Mapper    *RoleMapper
	Verifier  CredentialVerifier
	Logger    *slog.Logger
	Metrics   *stats.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

// LoginService turns credentials into an account.
type LoginService struct {
	deps   LoginDeps
	tracer trace.Tracer
}

func NewLoginService(deps LoginDeps) *LoginService {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &LoginService{deps: deps, tracer: trace.New("portier/core/login")}
}

// Authenticate runs the login path the client selected and then applies the account policy:
// inactive accounts are rejected before locked ones. A lockout end in the future rejects
// the login whatever LockoutEnabled says.
func (s *LoginService) Authenticate(ctx context.Context, username string, password string, useDirectory bool) (*model.Account, error) {
	path := definitions.AuthPathLocal
	if useDirectory {
		path = definitions.AuthPathDirectory
	}

	ctx, span := s.tracer.Start(ctx, "login.authenticate", attribute.String("auth_path", path))

	defer span.End()

	var (
		account *model.Account
		err     error
	)

	if useDirectory {
		account, err = s.DirectoryLogin(ctx, username, password)
	} else {
		account, err = s.LocalLogin(ctx, username, password)
	}

	if err == nil {
		err = s.checkPolicy(account)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login rejected")

		if s.deps.Metrics != nil {
			s.deps.Metrics.LoginsTotal.WithLabelValues(path, definitions.ResultFail).Inc()
		}

		return nil, err
	}

	span.SetAttributes(attribute.Int64("account_id", account.ID))

	return account, nil
}

func (s *LoginService) checkPolicy(account *model.Account) error {
	return CheckPolicy(account, s.deps.Now())
}

// CheckPolicy rejects inactive accounts first and then accounts locked at now. Every step that
// hands out a full session applies it.
func CheckPolicy(account *model.Account, now time.Time) error {
	if !account.Active {
		return errors.ErrAccountInactive
	}

	if account.IsLocked(now) {
		return errors.ErrAccountLocked.WithDetail(fmt.Sprintf("locked until %s", account.LockoutEnd.UTC().Format(time.RFC3339)))
	}

	return nil
}

// DirectoryLogin authenticates against the directory and synchronizes the local account
// with the directory entry. Lookup, provisioning or refresh and the replacement of the role
// assignments run in one transaction.
func (s *LoginService) DirectoryLogin(ctx context.Context, username string, password string) (*model.Account, error) {
	if s.deps.Directory == nil {
		return nil, errors.ErrDirectoryDisabled
	}

	result, err := s.deps.Directory.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	var account *model.Account

	err = s.deps.Accounts.InTx(ctx, func(store backend.AccountStore) error {
		existing, err := store.GetByDirectoryGUID(ctx, result.GUID)
		if err != nil && !stderrors.Is(err, errors.ErrRecordNotFound) {
			return err
		}

		if existing == nil {
			if !result.AutoProvision {
				return errors.ErrProvisioningDisabled
			}

			account = s.newDirectoryAccount(username, result)

			if err = store.Create(ctx, account); err != nil {
				return err
			}

			level.Info(s.deps.Logger).Log(
				definitions.LogKeyMsg, "Provisioned directory account",
				definitions.LogKeyUsername, account.Username,
				definitions.LogKeyAccountID, account.ID,
			)

			return nil
		}

		existing.Email = result.Mail
		existing.DisplayName = result.FullName()
		existing.Username = model.NormalizedUsername(username)
		existing.AccessFailedCount = 0
		existing.Roles = s.mapRoles(result)

		if err = store.Update(ctx, existing); err != nil {
			return err
		}

		account = existing

		return nil
	})

	if err != nil {
		if stderrors.Is(err, errors.ErrAuthenticationRejected) {
			return nil, err
		}

		if stderrors.Is(err, errors.ErrUsernameTaken) {
			return nil, fmt.Errorf("%w: %w", errors.ErrAuthenticationRejected, err)
		}

		return nil, fmt.Errorf("synchronize directory account: %w", err)
	}

	return account, nil
}

func (s *LoginService) newDirectoryAccount(username string, result *model.DirectoryResult) *model.Account {
	guid := result.GUID

	return &model.Account{
		Username:       model.NormalizedUsername(username),
		DisplayName:    result.FullName(),
		Email:          result.Mail,
		DirectoryGUID:  &guid,
		Kind:           definitions.AccountKindDirectory,
		Active:         true,
		LockoutEnabled: true,
		Roles:          s.mapRoles(result),
	}
}

func (s *LoginService) mapRoles(result *model.DirectoryResult) []model.RoleAssignment {
	if s.deps.Mapper == nil {
		return []model.RoleAssignment{}
	}

	return s.deps.Mapper.MapGroupsToRoles(result)
}

// LocalLogin looks the account up by its exact username and verifies the password. It
// never writes to the account.
func (s *LoginService) LocalLogin(ctx context.Context, username string, password string) (*model.Account, error) {
	account, err := s.deps.Accounts.GetByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return nil, errors.ErrAccountNotFound
		}

		return nil, err
	}

	ok, err := s.deps.Verifier.Verify(account.PasswordHash, password, account.Salt)
	if err != nil {
		level.Warn(s.deps.Logger).Log(
			definitions.LogKeyMsg, "Password verification failed",
			definitions.LogKeyAccountID, account.ID,
			definitions.LogKeyError, err,
		)

		return nil, errors.ErrWrongPassword.WithDetail(err.Error())
	}

	if !ok {
		return nil, errors.ErrWrongPassword
	}

	return account, nil
}
