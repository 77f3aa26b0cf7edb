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

// Package model holds the records the authentication core works on.
package model

import (
	"strconv"
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/google/uuid"
)

// Account is an identity together with its credentials and role assignments.
//
// Directory accounts always carry a DirectoryGUID and never a password hash.
// Local accounts never carry a DirectoryGUID.
type Account struct {
	ID                int64
	Username          string
	DisplayName       string
	Email             string
	DirectoryGUID     *uuid.UUID
	PasswordHash      string
	Salt              string
	Kind              definitions.AccountKind
	Active            bool
	TwoFactorEnabled  bool
	TwoFactorSecret   string
	LockoutEnd        *time.Time
	LockoutEnabled    bool
	AccessFailedCount int
	Roles             []RoleAssignment
}

// IDString is the account id as carried in session claims.
func (a *Account) IDString() string {
	return strconv.FormatInt(a.ID, 10)
}

// IsLocked reports whether a lockout end lies after now. LockoutEnabled only records
// whether the account may be locked and is not consulted.
func (a *Account) IsLocked(now time.Time) bool {
	if a == nil || a.LockoutEnd == nil {
		return false
	}

	return a.LockoutEnd.After(now)
}

// IsDirectory reports whether the account is backed by the directory.
func (a *Account) IsDirectory() bool {
	return a != nil && a.Kind == definitions.AccountKindDirectory
}

// ActiveRoleIDs returns the role ids of all active assignments in assignment order.
func (a *Account) ActiveRoleIDs() []int64 {
	if a == nil {
		return nil
	}

	ids := make([]int64, 0, len(a.Roles))

	for _, assignment := range a.Roles {
		if assignment.Active {
			ids = append(ids, assignment.RoleID)
		}
	}

	return ids
}

// ParseAccountID converts an account id claim back to its numeric form.
func ParseAccountID(claim string) (int64, bool) {
	if claim == "" {
		return 0, false
	}

	id, err := strconv.ParseInt(claim, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}
