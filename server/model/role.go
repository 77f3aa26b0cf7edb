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

package model

// Role is a named permission group. DirectoryGroup links it to one directory group
// common name; empty means not linked.
type Role struct {
	ID             int64  `json:"id"`
	Name           string `json:"name" validate:"required,max=256"`
	NormalizedName string `json:"normalized_name"`
	DirectoryGroup string `json:"directory_group" validate:"omitempty,max=256"`
}

// RoleAssignment joins an account and a role. Inactive assignments are
// placeholders and never count as membership.
type RoleAssignment struct {
	AccountID int64
	RoleID    int64
	Active    bool
}
