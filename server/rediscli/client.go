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

package rediscli

import (
	"log/slog"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/util"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// NewClient returns a standalone client for the configured server, or nil if none is configured.
func NewClient(cfg *config.RedisSection, logger *slog.Logger) *redis.Client {
	if !cfg.IsConfigured() {
		return nil
	}

	redis.SetLogger(&util.RedisLogger{Logger: logger})

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddress(),
		Password: cfg.GetPassword(),
		DB:       cfg.GetDB(),
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		level.Warn(logger).Log(definitions.LogKeyMsg, "Redis tracing instrumentation failed", definitions.LogKeyError, err)
	}

	return client
}
