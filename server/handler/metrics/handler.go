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
	"log/slog"

	"github.com/croessner/portier/server/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mdauth "github.com/croessner/portier/server/middleware/auth"
)

// Handler exposes the prometheus registry, optionally behind basic authentication.
type Handler struct {
	auth     *config.BasicAuth
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

func New(auth *config.BasicAuth, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Handler{auth: auth, gatherer: gatherer, logger: logger}
}

func (h *Handler) Register(router gin.IRouter) {
	promHandler := promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{DisableCompression: true})

	router.GET("/metrics", mdauth.BasicAuth(h.auth, h.logger), gin.WrapH(promHandler))
}
