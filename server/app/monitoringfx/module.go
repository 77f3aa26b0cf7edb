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
package monitoringfx

import (
	"context"
	"log/slog"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/monitoring"
	"github.com/croessner/portier/server/stats"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides the prometheus collectors and runs the tracer provider for the lifetime
// of the application.
var Module = fx.Module("monitoringfx",
	fx.Provide(
		NewMetrics,
		NewGatherer,
		NewTelemetry,
	),
	fx.Invoke(func(*monitoring.Telemetry) {}),
)

func NewMetrics() *stats.Metrics {
	return stats.GetMetrics()
}

// NewGatherer is the registry the collectors of NewMetrics live in.
func NewGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}

// NewTelemetry starts tracing with the app and flushes spans when it stops. Tracing is a
// no-op unless enabled in the configuration.
func NewTelemetry(lc fx.Lifecycle, cfg *config.File, logger *slog.Logger) *monitoring.Telemetry {
	telemetry := monitoring.NewTelemetry(logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return telemetry.Start(context.WithoutCancel(ctx), cfg.GetServer().GetTracing(), cfg.GetServer().GetInstanceName())
		},
		OnStop: func(ctx context.Context) error {
			telemetry.Shutdown(ctx)

			return nil
		},
	})

	return telemetry
}
