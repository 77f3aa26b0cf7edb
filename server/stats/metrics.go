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

package stats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector of the server.
type Metrics struct {
	// LoginsTotal counts login attempts by path (local, directory) and result (success, fail, two_factor).
	LoginsTotal *prometheus.CounterVec

	// TwoFactorTotal counts second factor submissions by result.
	TwoFactorTotal *prometheus.CounterVec

	// SessionsRevokedTotal counts sessions demoted to anonymous by revalidation.
	SessionsRevokedTotal prometheus.Counter

	// DirectoryRequestsTotal counts directory authentications by result.
	DirectoryRequestsTotal *prometheus.CounterVec

	// DirectoryDuration observes the duration of bind and search.
	DirectoryDuration prometheus.Histogram

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RoleCacheSize       prometheus.Gauge
}

// NewMetrics registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LoginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portier_logins_total",
			Help: "Number of failed and successful login attempts.",
		}, []string{"path", "result"}),
		TwoFactorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portier_two_factor_total",
			Help: "Number of second factor submissions.",
		}, []string{"result"}),
		SessionsRevokedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "portier_sessions_revoked_total",
			Help: "Number of sessions demoted to anonymous by revalidation.",
		}),
		DirectoryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portier_directory_requests_total",
			Help: "Number of directory authentications.",
		}, []string{"result"}),
		DirectoryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "portier_directory_duration_seconds",
			Help:    "Duration of directory bind and search.",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portier_http_requests_total",
			Help: "Number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portier_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		RoleCacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "portier_role_cache_size",
			Help: "Number of roles held in the role cache.",
		}),
	}
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// GetMetrics returns the collectors registered with the default prometheus registry.
func GetMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})

	return defaultMetrics
}
