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
package v1

import (
	"net/http"

	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/handler/deps"
	"github.com/croessner/portier/server/model"
	"github.com/gin-gonic/gin"

	mdauth "github.com/croessner/portier/server/middleware/auth"
)

// AdminAPI manages roles and accounts. It requires the administrator role.
type AdminAPI struct {
	deps *deps.Deps
}

func NewAdminAPI(d *deps.Deps) *AdminAPI {
	return &AdminAPI{deps: d}
}

// Register adds the administration routes.
func (a *AdminAPI) Register(router gin.IRouter) {
	group := router.Group("/api/v1/admin",
		mdauth.RequireAuthenticated(a.deps.Sessions, a.deps.SessionCfg()),
		mdauth.RequireRole(definitions.RoleAdministrator),
	)
	{
		roles := group.Group("/roles")
		{
			roles.GET("", a.ListRoles)
			roles.POST("", a.CreateRole)
			roles.PUT("/:id", a.UpdateRole)
			roles.DELETE("/:id", a.DeleteRole)
		}

		accounts := group.Group("/accounts")
		{
			accounts.POST("", a.CreateAccount)
			accounts.PUT("/:id/active", a.SetActive)
		}
	}
}

type roleRequest struct {
	Name           string `json:"name" binding:"required,max=256"`
	DirectoryGroup string `json:"directory_group" binding:"omitempty,max=256"`
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (a *AdminAPI) ListRoles(ctx *gin.Context) {
	roles, err := a.deps.Admin.ListRoles(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	if roles == nil {
		roles = []model.Role{}
	}

	ctx.JSON(http.StatusOK, roles)
}

func (a *AdminAPI) CreateRole(ctx *gin.Context) {
	var input roleRequest

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	role := &model.Role{Name: input.Name, DirectoryGroup: input.DirectoryGroup}

	if err := a.deps.Admin.CreateRole(ctx.Request.Context(), role); err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	ctx.JSON(http.StatusCreated, role)
}

func (a *AdminAPI) UpdateRole(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}

	var input roleRequest

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	role := &model.Role{ID: id, Name: input.Name, DirectoryGroup: input.DirectoryGroup}

	if err := a.deps.Admin.UpdateRole(ctx.Request.Context(), role); err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	ctx.JSON(http.StatusOK, role)
}

func (a *AdminAPI) DeleteRole(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}

	if err := a.deps.Admin.DeleteRole(ctx.Request.Context(), id); err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	ctx.Status(http.StatusNoContent)
}

// CreateAccount creates an active local account.
func (a *AdminAPI) CreateAccount(ctx *gin.Context) {
	var input core.NewLocalAccount

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	account, err := a.deps.Admin.CreateLocalAccount(ctx.Request.Context(), input)
	if err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"id": account.ID, "username": account.Username})
}

// SetActive activates or deactivates an account. Open sessions of a deactivated account are
// demoted by their next revalidation.
func (a *AdminAPI) SetActive(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}

	var input activeRequest

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	if err := a.deps.Admin.SetActive(ctx.Request.Context(), id, *input.Active); err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": id, "active": *input.Active})
}
