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

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log/level"
	"github.com/gin-gonic/gin"
)

// secureCompare compares two strings in constant time by hashing them first.
func secureCompare(a, b string) bool {
	h1 := sha256.Sum256([]byte(a))
	h2 := sha256.Sum256([]byte(b))

	return subtle.ConstantTimeCompare(h1[:], h2[:]) == 1
}

// BasicAuth protects operator endpoints such as /metrics. It is a no-op when disabled.
func BasicAuth(cfg *config.BasicAuth, logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !cfg.IsEnabled() {
			ctx.Next()

			return
		}

		username, password, found := ctx.Request.BasicAuth()
		if found && secureCompare(username, cfg.Username) && secureCompare(password, cfg.Password) {
			ctx.Next()

			return
		}

		level.Info(logger).Log(
			definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey),
			definitions.LogKeyMsg, "Basic authentication failed",
			definitions.LogKeyClientIP, ctx.ClientIP(),
			definitions.LogKeyUriPath, ctx.Request.URL.Path,
		)

		ctx.Header("WWW-Authenticate", `Basic realm="portier"`)
		ctx.AbortWithStatus(http.StatusUnauthorized)
	}
}
