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
package router

import (
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/session"
	"github.com/croessner/portier/server/stats"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	mdauth "github.com/croessner/portier/server/middleware/auth"
	mdlog "github.com/croessner/portier/server/middleware/logging"
	mdmet "github.com/croessner/portier/server/middleware/metrics"
)

// WithRecovery adds gin.Recovery middleware to recover from panics.
func (r *Router) WithRecovery() *Router {
	r.Engine.Use(gin.Recovery())

	return r
}

// WithTrustedProxies configures the trusted proxies for the underlying engine. ClientIP, and
// with it the trusted network check, depends on this list.
func (r *Router) WithTrustedProxies() *Router {
	if err := r.Engine.SetTrustedProxies(r.Cfg.GetServer().GetTrustedProxies()); err != nil {
		level.Error(r.Logger).Log(definitions.LogKeyMsg, "Invalid trusted proxies", definitions.LogKeyError, err)
	}

	return r
}

// WithTracing starts a server span per request when tracing is enabled.
func (r *Router) WithTracing() *Router {
	tracing := r.Cfg.GetServer().GetTracing()
	if !tracing.IsEnabled() {
		return r
	}

	serviceName := tracing.ServiceName
	if serviceName == "" {
		serviceName = r.Cfg.GetServer().GetInstanceName()
	}

	r.Engine.Use(otelgin.Middleware(serviceName))

	return r
}

// WithLogging logs one line per request.
func (r *Router) WithLogging() *Router {
	r.Engine.Use(mdlog.LoggerMiddleware(r.Logger))

	return r
}

// WithResponseCompression applies gzip compression according to server config. The session
// stream is excluded so events are not held back by the compressor.
func (r *Router) WithResponseCompression() *Router {
	if r.Cfg.GetServer().IsCompressionEnabled() {
		r.Engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/session/stream", "/metrics"})))
	}

	return r
}

// WithMetricsMiddleware enables Prometheus request metrics middleware.
func (r *Router) WithMetricsMiddleware(metrics *stats.Metrics) *Router {
	r.Engine.Use(mdmet.PrometheusMiddleware(metrics))

	return r
}

// WithSessions installs the cookie stores of both session scopes.
func (r *Router) WithSessions() *Router {
	sessionCfg := r.Cfg.GetSession()

	r.Engine.Use(session.Middleware(sessionCfg, session.NewStore(sessionCfg)))

	return r
}

// WithPProf registers the profiling endpoints behind basic authentication.
func (r *Router) WithPProf() *Router {
	if !r.Cfg.GetServer().IsPProfEnabled() {
		return r
	}

	group := r.Engine.Group("", mdauth.BasicAuth(r.Cfg.GetServer().GetBasicAuth(), r.Logger))

	pprof.RouteRegister(group)

	return r
}

// WithRoutes registers every registrar on the engine in order.
func (r *Router) WithRoutes(registrars ...Registrar) *Router {
	for _, registrar := range registrars {
		if registrar != nil {
			registrar.Register(r.Engine)
		}
	}

	return r
}
