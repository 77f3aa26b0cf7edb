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

// Package auth guards routes by session state, role membership and basic auth.
package auth

import (
	"net/http"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/session"
	"github.com/gin-gonic/gin"
)

// RequireAuthenticated revalidates the full session of the request. Requests without a
// valid full session are rejected with 401 and a demoted session loses its cookie.
func RequireAuthenticated(manager *core.SessionManager, cfg *config.SessionSection) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		state := manager.Verify(ctx.Request.Context(), session.NewTransport(ctx, cfg))

		authenticated, ok := state.(core.Authenticated)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		ctx.Set(definitions.CtxClaimsKey, authenticated)
		ctx.Next()
	}
}

// RequireRole rejects requests whose session does not hold the role. It must run after
// RequireAuthenticated.
func RequireRole(name string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authenticated, ok := Authenticated(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		if !authenticated.HasRole(name) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})

			return
		}

		ctx.Next()
	}
}

// Authenticated returns the session stored by RequireAuthenticated.
func Authenticated(ctx *gin.Context) (core.Authenticated, bool) {
	value, found := ctx.Get(definitions.CtxClaimsKey)
	if !found {
		return core.Authenticated{}, false
	}

	authenticated, ok := value.(core.Authenticated)

	return authenticated, ok
}
