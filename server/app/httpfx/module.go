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
package httpfx

import (
	"database/sql"
	"log/slog"
	"strings"

	"github.com/croessner/portier/server/config"
	v1 "github.com/croessner/portier/server/handler/api/v1"
	"github.com/croessner/portier/server/handler/deps"
	"github.com/croessner/portier/server/handler/health"
	"github.com/croessner/portier/server/handler/metrics"
	"github.com/croessner/portier/server/router"
	"github.com/croessner/portier/server/stats"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Module provides the gin engine and runs the HTTP server for the lifetime of the app.
var Module = fx.Module("httpfx",
	fx.Provide(
		NewEngine,
		NewServer,
	),
	fx.Invoke(func(*Server) {}),
)

// EngineParams are the dependencies of the route tree.
type EngineParams struct {
	fx.In

	Cfg      *config.File
	Logger   *slog.Logger
	Metrics  *stats.Metrics
	Gatherer prometheus.Gatherer
	Deps     *deps.Deps
	DB       *sql.DB
	Redis    *redis.Client
}

// NewEngine assembles middlewares and routes in the order requests pass them.
func NewEngine(p EngineParams) *gin.Engine {
	if !strings.EqualFold(p.Cfg.GetServer().GetLogLevel(), "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	var redisClient redis.Cmdable

	if p.Redis != nil {
		redisClient = p.Redis
	}

	return router.NewRouter(p.Cfg, p.Logger).
		WithRecovery().
		WithTrustedProxies().
		WithTracing().
		WithLogging().
		WithResponseCompression().
		WithMetricsMiddleware(p.Metrics).
		WithSessions().
		WithPProf().
		WithRoutes(
			health.New(p.DB, redisClient, p.Logger),
			metrics.New(p.Cfg.GetServer().GetBasicAuth(), p.Gatherer, p.Logger),
			v1.NewAuthAPI(p.Deps),
			v1.NewAccountAPI(p.Deps),
			v1.NewAdminAPI(p.Deps),
		).
		Build()
}
