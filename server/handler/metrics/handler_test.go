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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/croessner/portier/server/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "portier_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	testCases := []struct {
		name     string
		auth     *config.BasicAuth
		user     string
		pass     string
		expected int
	}{
		{"open", nil, "", "", http.StatusOK},
		{"protected without credentials", &config.BasicAuth{Enabled: true, Username: "prom", Password: "scrape"}, "", "", http.StatusUnauthorized},
		{"protected with credentials", &config.BasicAuth{Enabled: true, Username: "prom", Password: "scrape"}, "prom", "scrape", http.StatusOK},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			router := gin.New()
			New(testCase.auth, reg, nil).Register(router)

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if testCase.user != "" {
				req.SetBasicAuth(testCase.user, testCase.pass)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, testCase.expected, w.Code)

			if testCase.expected == http.StatusOK {
				assert.Contains(t, w.Body.String(), "portier_test_total 1")
			}
		})
	}
}
