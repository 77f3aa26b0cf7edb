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
	stderrors "errors"
	"net/http"

	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/handler/deps"
	"github.com/croessner/portier/server/model"
	"github.com/gin-gonic/gin"

	mdauth "github.com/croessner/portier/server/middleware/auth"
)

// AccountAPI lets the signed in user manage the own account.
type AccountAPI struct {
	deps *deps.Deps
}

func NewAccountAPI(d *deps.Deps) *AccountAPI {
	return &AccountAPI{deps: d}
}

// Register adds the account routes. Every route revalidates the full session.
func (a *AccountAPI) Register(router gin.IRouter) {
	group := router.Group("/api/v1/account", mdauth.RequireAuthenticated(a.deps.Sessions, a.deps.SessionCfg()))
	{
		group.GET("", a.Profile)
		group.POST("/password", a.ChangePassword)

		twoFactor := group.Group("/2fa")
		{
			twoFactor.POST("/begin", a.BeginTwoFactor)
			twoFactor.POST("/enable", a.EnableTwoFactor)
			twoFactor.POST("/disable", a.DisableTwoFactor)
		}
	}
}

type profileResponse struct {
	ID               int64    `json:"id"`
	Username         string   `json:"username"`
	DisplayName      string   `json:"display_name"`
	Email            string   `json:"email"`
	Kind             string   `json:"kind"`
	TwoFactorEnabled bool     `json:"two_factor_enabled"`
	Roles            []string `json:"roles"`
}

type enableTwoFactorRequest struct {
	Secret string `json:"secret" binding:"required,max=128"`
	Code   string `json:"code" binding:"required,max=16"`
}

type changePasswordRequest struct {
	Current string `json:"current" binding:"required"`
	New     string `json:"new" binding:"required"`
	Confirm string `json:"confirm" binding:"required"`
}

func (a *AccountAPI) account(ctx *gin.Context) (*model.Account, bool) {
	authenticated, ok := mdauth.Authenticated(ctx)
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})

		return nil, false
	}

	account, err := a.deps.Accounts.GetByID(ctx.Request.Context(), authenticated.AccountID)
	if err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return nil, false
	}

	return account, true
}

// Profile returns the account of the session.
func (a *AccountAPI) Profile(ctx *gin.Context) {
	account, ok := a.account(ctx)
	if !ok {
		return
	}

	authenticated, _ := mdauth.Authenticated(ctx)

	roles := authenticated.Roles
	if roles == nil {
		roles = []string{}
	}

	ctx.JSON(http.StatusOK, profileResponse{
		ID:               account.ID,
		Username:         account.Username,
		DisplayName:      account.DisplayName,
		Email:            account.Email,
		Kind:             account.Kind.String(),
		TwoFactorEnabled: account.TwoFactorEnabled,
		Roles:            roles,
	})
}

// BeginTwoFactor returns a fresh secret with its otpauth URI and QR code.
func (a *AccountAPI) BeginTwoFactor(ctx *gin.Context) {
	account, ok := a.account(ctx)
	if !ok {
		return
	}

	enrollment, err := a.deps.TwoFactor.Begin(account)
	if err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	ctx.JSON(http.StatusOK, enrollment)
}

// EnableTwoFactor stores the secret once the code matches.
func (a *AccountAPI) EnableTwoFactor(ctx *gin.Context) {
	var input enableTwoFactorRequest

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	account, ok := a.account(ctx)
	if !ok {
		return
	}

	if err := a.deps.TwoFactor.Enable(ctx.Request.Context(), account, input.Secret, input.Code); err != nil {
		a.abortCode(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"two_factor_enabled": true})
}

// DisableTwoFactor removes the secret. The current code is required.
func (a *AccountAPI) DisableTwoFactor(ctx *gin.Context) {
	var input twoFactorRequest

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	account, ok := a.account(ctx)
	if !ok {
		return
	}

	if err := a.deps.TwoFactor.Disable(ctx.Request.Context(), account, input.Code); err != nil {
		a.abortCode(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"two_factor_enabled": false})
}

// ChangePassword replaces the password of a local account.
func (a *AccountAPI) ChangePassword(ctx *gin.Context) {
	var input changePasswordRequest

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	account, ok := a.account(ctx)
	if !ok {
		return
	}

	if err := a.deps.Passwords.Change(ctx.Request.Context(), account, input.Current, input.New, input.Confirm); err != nil {
		if stderrors.Is(err, errors.ErrWrongPassword) {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgWrongPassword})

			return
		}

		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	ctx.Status(http.StatusNoContent)
}

// abortCode answers a wrong TOTP code with 400. The session itself stays valid.
func (a *AccountAPI) abortCode(ctx *gin.Context, err error) {
	if stderrors.Is(err, errors.ErrTOTPCodeInvalid) || stderrors.Is(err, errors.ErrTOTPCodeReused) {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidCode})

		return
	}

	abortWithError(ctx, a.deps.GetLogger(), err)
}
