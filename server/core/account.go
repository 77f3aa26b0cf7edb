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
	"strings"
	"unicode/utf8"

	"github.com/croessner/portier/server/backend"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/localcache"
	"github.com/croessner/portier/server/model"
	"github.com/croessner/portier/server/stats"
)

// CheckPasswordPolicy enforces the length limits and the confirmation.
func CheckPasswordPolicy(password string, confirm string) error {
	length := utf8.RuneCountInString(password)

	if length < definitions.PasswordMinLength || length > definitions.PasswordMaxLength {
		return errors.ErrPasswordPolicy
	}

	if password != confirm {
		return errors.ErrPasswordMismatch
	}

	return nil
}

// PasswordService changes passwords of local accounts.
type PasswordService struct {
	accounts backend.AccountStore
	hasher   *PasswordHasher
}

func NewPasswordService(accounts backend.AccountStore, hasher *PasswordHasher) *PasswordService {
	return &PasswordService{accounts: accounts, hasher: hasher}
}

// Change verifies current, then stores newPassword with a fresh salt.
func (s *PasswordService) Change(ctx context.Context, account *model.Account, current string, newPassword string, confirm string) error {
	if account.Kind != definitions.AccountKindLocal {
		return errors.ErrNotLocalAccount
	}

	ok, err := s.hasher.Verify(account.PasswordHash, current, account.Salt)
	if err != nil || !ok {
		return errors.ErrWrongPassword
	}

	if err = CheckPasswordPolicy(newPassword, confirm); err != nil {
		return err
	}

	return s.setPassword(ctx, account, newPassword)
}

func (s *PasswordService) setPassword(ctx context.Context, account *model.Account, password string) error {
	salt, err := NewSalt()
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password, salt)
	if err != nil {
		return err
	}

	account.Salt = salt
	account.PasswordHash = hash

	return s.accounts.SetPassword(ctx, account)
}

// NewLocalAccount is the input of AdminService.CreateLocalAccount.
type NewLocalAccount struct {
	Username    string  `json:"username" binding:"required,max=256"`
	DisplayName string  `json:"display_name" binding:"max=256"`
	Email       string  `json:"email" binding:"omitempty,email"`
	Password    string  `json:"password" binding:"required"`
	Confirm     string  `json:"confirm" binding:"required"`
	RoleIDs     []int64 `json:"role_ids"`
}

// AdminService manages roles and accounts. Every role write is mirrored into the cache.
type AdminService struct {
	accounts backend.AccountStore
	roles    backend.RoleStore
	cache    *localcache.RoleCache
	hasher   *PasswordHasher
	metrics  *stats.Metrics
}

func NewAdminService(accounts backend.AccountStore, roles backend.RoleStore, cache *localcache.RoleCache, hasher *PasswordHasher, metrics *stats.Metrics) *AdminService {
	return &AdminService{accounts: accounts, roles: roles, cache: cache, hasher: hasher, metrics: metrics}
}

// CreateLocalAccount creates an active local account with the given roles.
func (s *AdminService) CreateLocalAccount(ctx context.Context, input NewLocalAccount) (*model.Account, error) {
	if err := CheckPasswordPolicy(input.Password, input.Confirm); err != nil {
		return nil, err
	}

	assignments := make([]model.RoleAssignment, 0, len(input.RoleIDs))

	for _, id := range input.RoleIDs {
		if _, found := s.cache.FindByID(id); !found {
			return nil, errors.ErrRoleNotFound
		}

		assignments = append(assignments, model.RoleAssignment{RoleID: id, Active: true})
	}

	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password, salt)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Username:       input.Username,
		DisplayName:    input.DisplayName,
		Email:          input.Email,
		PasswordHash:   hash,
		Salt:           salt,
		Kind:           definitions.AccountKindLocal,
		Active:         true,
		LockoutEnabled: true,
		Roles:          assignments,
	}

	if err = s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// SetActive activates or deactivates an account. Sessions of a deactivated account are
// demoted by the next revalidation.
func (s *AdminService) SetActive(ctx context.Context, id int64, active bool) error {
	return s.accounts.SetActive(ctx, id, active)
}

func (s *AdminService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.roles.ListRoles(ctx)
}

func (s *AdminService) CreateRole(ctx context.Context, role *model.Role) error {
	role.NormalizedName = strings.ToUpper(role.Name)

	if err := s.roles.CreateRole(ctx, role); err != nil {
		return err
	}

	s.cache.Upsert(*role)
	s.updateCacheGauge()

	return nil
}

func (s *AdminService) UpdateRole(ctx context.Context, role *model.Role) error {
	role.NormalizedName = strings.ToUpper(role.Name)

	if err := s.roles.UpdateRole(ctx, role); err != nil {
		return err
	}

	s.cache.Upsert(*role)

	return nil
}

func (s *AdminService) DeleteRole(ctx context.Context, id int64) error {
	if err := s.roles.DeleteRole(ctx, id); err != nil {
		return err
	}

	s.cache.Remove(id)
	s.updateCacheGauge()

	return nil
}

func (s *AdminService) updateCacheGauge() {
	if s.metrics != nil {
		s.metrics.RoleCacheSize.Set(float64(s.cache.Len()))
	}
}
