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

package logging

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/util"
	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
)

// LoggerMiddleware assigns a GUID to every request and logs one line per request with
// latency, client and status.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var logWrapper func(logger *slog.Logger) level.Logger

		guid := ksuid.New().String()
		ctx.Set(definitions.CtxGUIDKey, guid)

		start := time.Now()

		ctx.Next()

		err := ctx.Errors.Last()

		if err != nil {
			logWrapper = level.Error
		} else {
			logWrapper = level.Info
		}

		latency := time.Since(start)

		negotiatedProtocol := definitions.NotAvailable
		if ctx.Request.TLS != nil {
			negotiatedProtocol = tls.VersionName(ctx.Request.TLS.Version)
		}

		// Fall back to the global logger if caller passed nil.
		if logger == nil {
			logger = log.Logger
		}

		logWrapper(logger).Log(
			definitions.LogKeyGUID, guid,
			definitions.LogKeyClientIP, ctx.ClientIP(),
			definitions.LogKeyMethod, ctx.Request.Method,
			definitions.LogKeyProtocol, ctx.Request.Proto,
			"tls", negotiatedProtocol,
			definitions.LogKeyStatus, ctx.Writer.Status(),
			definitions.LogKeyLatency, util.FormatDurationMs(latency),
			definitions.LogKeyUserAgent, util.WithNotAvailable(ctx.Request.UserAgent()),
			definitions.LogKeyUriPath, ctx.Request.URL.Path,
			definitions.LogKeyMsg, func() string {
				if err != nil {
					return err.Error()
				}

				return "HTTP request"
			}(),
		)
	}
}

// GUID returns the request GUID set by LoggerMiddleware.
func GUID(ctx *gin.Context) string {
	return ctx.GetString(definitions.CtxGUIDKey)
}
