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
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log/level"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	statusUp      = "up"
	statusDown    = "down"
	statusSkipped = "skipped"

	checkTimeout = 2 * time.Second
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Check struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Meta   map[string]any `json:"meta,omitzero"`
}

type Result struct {
	Status string            `json:"status"`
	Checks map[string]*Check `json:"checks"`
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	db     Pinger
	redis  redis.Cmdable
	logger *slog.Logger
}

// New returns a Handler. db and redis may be nil; a nil redis client is reported as skipped.
func New(db Pinger, redisClient redis.Cmdable, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{db: db, redis: redisClient, logger: logger}
}

func (h *Handler) Register(router gin.IRouter) {
	router.GET("/ping", h.Ping)
	router.GET("/healthz", h.Readiness)
}

// Ping answers "pong".
func (h *Handler) Ping(ctx *gin.Context) {
	level.Debug(h.logger).Log(definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey), definitions.LogKeyMsg, "Health check")

	ctx.String(http.StatusOK, "pong")
}

// Readiness pings the database and, if configured, redis.
func (h *Handler) Readiness(ctx *gin.Context) {
	result := &Result{Status: statusUp, Checks: map[string]*Check{}}

	result.Checks["database"] = h.checkDatabase(ctx.Request.Context())
	result.Checks["redis"] = h.checkRedis(ctx.Request.Context())

	statusCode := http.StatusOK

	for name, check := range result.Checks {
		if check.Status != statusDown {
			continue
		}

		result.Status = statusDown
		statusCode = http.StatusServiceUnavailable

		level.Warn(h.logger).Log(
			definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey),
			definitions.LogKeyMsg, "Readiness check failed",
			"check", name,
			definitions.LogKeyError, check.Error,
		)
	}

	ctx.JSON(statusCode, result)
}

func (h *Handler) checkDatabase(parent context.Context) *Check {
	if h.db == nil {
		return &Check{Status: statusDown, Error: "database not configured"}
	}

	return timed(parent, h.db.PingContext)
}

func (h *Handler) checkRedis(parent context.Context) *Check {
	if h.redis == nil {
		return &Check{Status: statusSkipped, Error: "redis client not configured"}
	}

	return timed(parent, func(ctx context.Context) error {
		return h.redis.Ping(ctx).Err()
	})
}

func timed(parent context.Context, ping func(ctx context.Context) error) *Check {
	ctx, cancel := context.WithTimeout(parent, checkTimeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	meta := map[string]any{"latency_ms": time.Since(start).Milliseconds()}

	if err != nil {
		return &Check{Status: statusDown, Error: err.Error(), Meta: meta}
	}

	return &Check{Status: statusUp, Meta: meta}
}
