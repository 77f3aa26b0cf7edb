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
package storefx

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/croessner/portier/server/backend"
	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/localcache"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/rediscli"
	"github.com/croessner/portier/server/stats"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

// Module provides the PostgreSQL stores, the optional redis client and the role cache.
var Module = fx.Module("storefx",
	fx.Provide(
		NewDatabase,
		NewRedis,
		NewReplayGuard,
		fx.Annotate(backend.NewSQLAccountStore, fx.As(new(backend.AccountStore))),
		fx.Annotate(backend.NewSQLRoleStore, fx.As(new(backend.RoleStore))),
		NewRoleCache,
	),
	fx.Invoke(RegisterStartup),
)

// NewDatabase opens the connection pool. It is closed when the app stops.
func NewDatabase(lc fx.Lifecycle, cfg *config.File) (*sql.DB, error) {
	db, err := backend.OpenDatabase(cfg.GetSQL())
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})

	return db, nil
}

// NewRedis returns nil if no redis server is configured.
func NewRedis(lc fx.Lifecycle, cfg *config.File, logger *slog.Logger) *redis.Client {
	client := rediscli.NewClient(cfg.GetRedis(), logger)
	if client == nil {
		return nil
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client
}

// NewReplayGuard keeps used TOTP steps in redis if available, else in process memory. It
// returns nil when replay protection is off.
func NewReplayGuard(cfg *config.File, client *redis.Client) core.ReplayGuard {
	security := cfg.GetSecurity()
	if !security.IsTOTPReplayProtection() {
		return nil
	}

	ttl := core.ReplayWindow(security.GetTOTPSkew())

	if client != nil {
		return rediscli.NewReplayGuard(client, ttl)
	}

	return localcache.NewReplayGuard(ttl)
}

func NewRoleCache() *localcache.RoleCache {
	return localcache.NewRoleCache()
}

// StartupParams are the dependencies checked before the HTTP server starts.
type StartupParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	DB        *sql.DB
	Redis     *redis.Client
	Roles     backend.RoleStore
	Cache     *localcache.RoleCache
	Metrics   *stats.Metrics
	Logger    *slog.Logger
}

// RegisterStartup pings the database and redis in parallel, creates missing tables and
// fills the role cache.
func RegisterStartup(p StartupParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				if err := p.DB.PingContext(gctx); err != nil {
					return fmt.Errorf("ping database: %w", err)
				}

				return backend.EnsureSchema(gctx, p.DB)
			})

			if p.Redis != nil {
				g.Go(func() error {
					if err := p.Redis.Ping(gctx).Err(); err != nil {
						return fmt.Errorf("ping redis: %w", err)
					}

					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}

			if err := p.Cache.Reload(ctx, p.Roles); err != nil {
				return fmt.Errorf("load roles: %w", err)
			}

			if p.Metrics != nil {
				p.Metrics.RoleCacheSize.Set(float64(p.Cache.Len()))
			}

			level.Info(p.Logger).Log(definitions.LogKeyMsg, "Role cache loaded", "roles", p.Cache.Len())

			return nil
		},
	})
}
