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
	"slices"
	"strings"

	"github.com/croessner/portier/server/model"
)

// RoleLookup is the read side of the role cache.
type RoleLookup interface {
	AllRoles() []model.Role
	FindByID(id int64) (model.Role, bool)
}

// RoleMapper derives role assignments from directory group memberships.
type RoleMapper struct {
	roles RoleLookup
}

func NewRoleMapper(roles RoleLookup) *RoleMapper {
	return &RoleMapper{roles: roles}
}

// MapGroupsToRoles emits one active assignment for every cached role whose directory group
// is among the groups of result. Assignments follow the cache order.
func (m *RoleMapper) MapGroupsToRoles(result *model.DirectoryResult) []model.RoleAssignment {
	assignments := make([]model.RoleAssignment, 0)

	if result == nil || m.roles == nil {
		return assignments
	}

	for _, role := range m.roles.AllRoles() {
		if strings.TrimSpace(role.DirectoryGroup) == "" {
			continue
		}

		if slices.Contains(result.Groups, role.DirectoryGroup) {
			assignments = append(assignments, model.RoleAssignment{RoleID: role.ID, Active: true})
		}
	}

	return assignments
}
