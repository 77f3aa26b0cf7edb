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

package metrics

import (
	"strconv"

	"github.com/croessner/portier/server/stats"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMiddleware counts requests by method, route and status and observes the
// response time per route. Unmatched routes are grouped under "unknown".
func PrometheusMiddleware(metrics *stats.Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if metrics == nil {
			ctx.Next()

			return
		}

		path := ctx.FullPath()
		if path == "" {
			path = "unknown"
		}

		timer := prometheus.NewTimer(metrics.HTTPRequestDuration.WithLabelValues(path))

		ctx.Next()

		timer.ObserveDuration()

		metrics.HTTPRequestsTotal.WithLabelValues(ctx.Request.Method, path, strconv.Itoa(ctx.Writer.Status())).Inc()
	}
}
