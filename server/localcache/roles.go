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

package localcache

import (
	"context"
	"slices"
	"sync"

	"github.com/croessner/portier/server/model"
)

// RoleSource loads the complete role table.
type RoleSource interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
}

// RoleCache is the in-process copy of the role table. It keeps the load order of
// the roles, which is also the order role assignments are derived in.
type RoleCache struct {
	mu    sync.RWMutex
	roles []model.Role
}

func NewRoleCache(roles ...model.Role) *RoleCache {
	return &RoleCache{roles: slices.Clone(roles)}
}

// Reload replaces the cached roles with the content of src. On error the old content stays.
func (c *RoleCache) Reload(ctx context.Context, src RoleSource) error {
	roles, err := src.ListRoles(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.roles = slices.Clone(roles)
	c.mu.Unlock()

	return nil
}

// Upsert replaces the role with the same id in place or appends it.
func (c *RoleCache) Upsert(role model.Role) {
	c.mu.Lock()

	defer c.mu.Unlock()

	if index := c.indexOf(role.ID); index >= 0 {
		c.roles[index] = role

		return
	}

	c.roles = append(c.roles, role)
}

// Remove drops the role with id. Unknown ids are ignored.
func (c *RoleCache) Remove(id int64) {
	c.mu.Lock()

	defer c.mu.Unlock()

	if index := c.indexOf(id); index >= 0 {
		c.roles = slices.Delete(c.roles, index, index+1)
	}
}

// AllRoles returns a copy of the cached roles in cache order.
func (c *RoleCache) AllRoles() []model.Role {
	c.mu.RLock()

	defer c.mu.RUnlock()

	return slices.Clone(c.roles)
}

func (c *RoleCache) FindByID(id int64) (model.Role, bool) {
	c.mu.RLock()

	defer c.mu.RUnlock()

	if index := c.indexOf(id); index >= 0 {
		return c.roles[index], true
	}

	return model.Role{}, false
}

func (c *RoleCache) Len() int {
	c.mu.RLock()

	defer c.mu.RUnlock()

	return len(c.roles)
}

func (c *RoleCache) indexOf(id int64) int {
	return slices.IndexFunc(c.roles, func(role model.Role) bool {
		return role.ID == id
	})
}
