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

	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/handler/deps"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/model"
	"github.com/gin-gonic/gin"
)

// AuthAPI serves login, logout and the session state.
type AuthAPI struct {
	deps *deps.Deps
}

func NewAuthAPI(d *deps.Deps) *AuthAPI {
	return &AuthAPI{deps: d}
}

// Register adds the login and session routes to the router.
func (a *AuthAPI) Register(router gin.IRouter) {
	group := router.Group("/api/v1")
	{
		group.POST("/login", a.Login)
		group.POST("/login/2fa", a.LoginTwoFactor)
		group.POST("/logout", a.Logout)
		group.GET("/session", a.Session)
		group.GET("/session/stream", a.Stream)
	}
}

type loginRequest struct {
	Username     string `json:"username" binding:"required,max=256"`
	Password     string `json:"password" binding:"required,max=256"`
	UseDirectory bool   `json:"use_directory"`
	RememberMe   bool   `json:"remember_me"`
}

type twoFactorRequest struct {
	Code string `json:"code" binding:"required,max=16"`
}

type sessionResponse struct {
	State      string   `json:"state"`
	AccountID  int64    `json:"account_id,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Persistent bool     `json:"persistent,omitempty"`
}

func newSessionResponse(state core.SessionState) sessionResponse {
	switch s := state.(type) {
	case core.Authenticated:
		return sessionResponse{State: s.State(), AccountID: s.AccountID, Roles: s.Roles, Persistent: s.Persistent}
	case core.PendingTwoFactor:
		return sessionResponse{State: s.State()}
	default:
		return sessionResponse{State: core.Anonymous{}.State()}
	}
}

// Login checks the first factor. Accounts with TOTP outside a trusted network get a pending
// session and must finish with LoginTwoFactor.
func (a *AuthAPI) Login(ctx *gin.Context) {
	var input loginRequest

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	path := definitions.AuthPathLocal
	if input.UseDirectory {
		path = definitions.AuthPathDirectory
	}

	account, err := a.deps.Login.Authenticate(ctx.Request.Context(), input.Username, input.Password, input.UseDirectory)
	if err != nil {
		a.reject(ctx, input.Username, path, err)

		return
	}

	t := newTransport(ctx, a.deps)

	if a.deps.Sessions.ShouldRequireTwoFactor(account, ctx.ClientIP()) {
		if err = a.deps.Sessions.IssuePendingSession(t, account, input.RememberMe); err != nil {
			abortWithError(ctx, a.deps.GetLogger(), err)

			return
		}

		a.count(path, definitions.ResultTwoFactor)
		a.logLogin(ctx, account, path, "Login requires second factor")

		ctx.JSON(http.StatusOK, newSessionResponse(core.PendingTwoFactor{AccountID: account.ID}))

		return
	}

	if err = a.deps.Sessions.IssueFullSession(t, account, input.RememberMe); err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	a.count(path, definitions.ResultSuccess)
	a.logLogin(ctx, account, path, "Login successful")

	ctx.JSON(http.StatusOK, sessionResponse{State: core.Authenticated{}.State()})
}

// LoginTwoFactor completes a pending login with a TOTP code.
func (a *AuthAPI) LoginTwoFactor(ctx *gin.Context) {
	var input twoFactorRequest

	if err := ctx.ShouldBindJSON(&input); err != nil {
		abortInvalidInput(ctx)

		return
	}

	t := newTransport(ctx, a.deps)

	claims, found := t.ReadClaims(definitions.ScopePending)
	if !found {
		a.reject(ctx, "", definitions.AuthPathLocal, errors.ErrNoPendingSession)

		return
	}

	account, err := a.deps.Sessions.CompletePendingSession(ctx.Request.Context(), t, claims.AccountID, input.Code, claims.Persistent)
	if err != nil {
		if stderrors.Is(err, errors.ErrAuthenticationRejected) {
			level.Info(a.deps.GetLogger()).Log(
				definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey),
				definitions.LogKeyMsg, "Second factor rejected",
				definitions.LogKeyAccountID, claims.AccountID,
				definitions.LogKeyClientIP, ctx.ClientIP(),
				definitions.LogKeyReason, err,
			)

			ctx.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidCode})

			return
		}

		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	a.logLogin(ctx, account, definitions.AuthPathTOTP, "Second factor accepted")

	ctx.JSON(http.StatusOK, sessionResponse{State: core.Authenticated{}.State()})
}

// Logout clears the full session.
func (a *AuthAPI) Logout(ctx *gin.Context) {
	if err := a.deps.Sessions.Logout(newTransport(ctx, a.deps)); err != nil {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	ctx.JSON(http.StatusOK, sessionResponse{State: core.Anonymous{}.State()})
}

// Session returns the revalidated state of the request.
func (a *AuthAPI) Session(ctx *gin.Context) {
	state := a.deps.Sessions.Verify(ctx.Request.Context(), newTransport(ctx, a.deps))

	ctx.JSON(http.StatusOK, newSessionResponse(state))
}

// Stream revalidates the full session once per interval and reports every result as a
// server-sent event. A demoted session gets a final "revoked" event and the stream ends.
// The cookie of a session demoted after the headers were sent is cleared by the next request.
func (a *AuthAPI) Stream(ctx *gin.Context) {
	t := newTransport(ctx, a.deps)

	claims, found := t.ReadClaims(definitions.ScopeFull)
	if !found {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})

		return
	}

	revalidator := core.NewRevalidator(a.deps.Accounts, claims, a.deps.RevalidationInterval(), a.deps.GetLogger(), a.deps.Metrics)

	if err := revalidator.Initial(ctx.Request.Context()); err != nil {
		_ = t.ClearScope(definitions.ScopeFull)

		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})

		return
	}

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	_ = revalidator.Run(ctx.Request.Context(), func(err error) {
		if err != nil {
			ctx.SSEvent("revoked", sessionResponse{State: core.Anonymous{}.State()})
		} else {
			ctx.SSEvent("valid", sessionResponse{State: core.Authenticated{}.State()})
		}

		ctx.Writer.Flush()
	})
}

func (a *AuthAPI) reject(ctx *gin.Context, username string, path string, err error) {
	if !stderrors.Is(err, errors.ErrAuthenticationRejected) {
		abortWithError(ctx, a.deps.GetLogger(), err)

		return
	}

	keyvals := []any{
		definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey),
		definitions.LogKeyMsg, "Login rejected",
		definitions.LogKeyUsername, username,
		definitions.LogKeyAuthPath, path,
		definitions.LogKeyClientIP, ctx.ClientIP(),
		definitions.LogKeyReason, err,
	}

	var detailed *errors.DetailedError
	if stderrors.As(err, &detailed) && detailed.GetDetails() != "" {
		keyvals = append(keyvals, definitions.LogKeyErrorDetails, detailed.GetDetails())
	}

	level.Info(a.deps.GetLogger()).Log(keyvals...)

	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgRejected})
}

func (a *AuthAPI) count(path string, result string) {
	if a.deps.Metrics != nil {
		a.deps.Metrics.LoginsTotal.WithLabelValues(path, result).Inc()
	}
}

func (a *AuthAPI) logLogin(ctx *gin.Context, account *model.Account, path string, msg string) {
	level.Info(a.deps.GetLogger()).Log(
		definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey),
		definitions.LogKeyMsg, msg,
		definitions.LogKeyUsername, account.Username,
		definitions.LogKeyAccountID, account.ID,
		definitions.LogKeyAuthPath, path,
		definitions.LogKeyClientIP, ctx.ClientIP(),
	)
}
