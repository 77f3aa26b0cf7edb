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

package monitoring

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log/level"
	b3prop "go.opentelemetry.io/contrib/propagators/b3"
	jaegerprop "go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Telemetry owns the tracer provider of the process.
type Telemetry struct {
	mu     sync.Mutex
	tp     *sdktrace.TracerProvider
	logger *slog.Logger
}

func NewTelemetry(logger *slog.Logger) *Telemetry {
	return &Telemetry{logger: logger}
}

// Start installs a tracer provider exporting over OTLP/HTTP. Without tracing enabled it does nothing.
func (t *Telemetry) Start(ctx context.Context, cfg *config.TracingSection, instance string) error {
	if !cfg.IsEnabled() {
		return nil
	}

	t.mu.Lock()

	defer t.mu.Unlock()

	if t.tp != nil {
		return nil
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = instance
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(definitions.Version),
		attribute.String("instance", instance),
	))
	if err != nil {
		level.Warn(t.logger).Log(definitions.LogKeyMsg, "Failed to merge OpenTelemetry resource", definitions.LogKeyError, err)

		res = resource.Default()
	}

	var opts []otlptracehttp.Option

	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}

	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return err
	}

	t.tp = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerRatio))),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTextMapPropagator(BuildPropagators(cfg.Propagators))
	otel.SetTracerProvider(t.tp)

	level.Info(t.logger).Log(definitions.LogKeyMsg, "OpenTelemetry tracing enabled", "service", serviceName, "endpoint", cfg.Endpoint)

	return nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) {
	t.mu.Lock()

	defer t.mu.Unlock()

	if t.tp == nil {
		return
	}

	if err := t.tp.Shutdown(ctx); err != nil {
		level.Warn(t.logger).Log(definitions.LogKeyMsg, "OpenTelemetry shutdown failed", definitions.LogKeyError, err)
	}

	t.tp = nil
}

// BuildPropagators maps configured names to propagators. Unknown names are ignored.
func BuildPropagators(names []string) propagation.TextMapPropagator {
	var list []propagation.TextMapPropagator

	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "tracecontext":
			list = append(list, propagation.TraceContext{})
		case "baggage":
			list = append(list, propagation.Baggage{})
		case "b3":
			list = append(list, b3prop.New())
		case "b3multi":
			list = append(list, b3prop.New(b3prop.WithInjectEncoding(b3prop.B3MultipleHeader)))
		case "jaeger":
			list = append(list, jaegerprop.Jaeger{})
		}
	}

	if len(list) == 0 {
		list = append(list, propagation.TraceContext{}, propagation.Baggage{})
	}

	return propagation.NewCompositeTextMapPropagator(list...)
}
