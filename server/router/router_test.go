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
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/croessner/portier/server/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type echoRoutes struct{}

func (echoRoutes) Register(router gin.IRouter) {
	router.GET("/echo", func(ctx *gin.Context) { ctx.String(http.StatusOK, strings.Repeat("echo ", 512)) })
	router.GET("/api/v1/session/stream", func(ctx *gin.Context) { ctx.String(http.StatusOK, strings.Repeat("data ", 512)) })
}

func newTestRouter(server *config.ServerSection) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.File{Server: server}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRouter(cfg, logger).
		WithRecovery().
		WithTrustedProxies().
		WithLogging().
		WithResponseCompression().
		WithPProf().
		WithRoutes(echoRoutes{}, nil).
		Build()
}

func get(engine *gin.Engine, path string, prepare func(req *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if prepare != nil {
		prepare(req)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	return w
}

func TestWithRoutes(t *testing.T) {
	engine := newTestRouter(&config.ServerSection{})

	assert.Equal(t, http.StatusOK, get(engine, "/echo", nil).Code)
	assert.Equal(t, http.StatusNotFound, get(engine, "/debug/pprof/", nil).Code, "pprof is off by default")
}

func TestWithResponseCompression(t *testing.T) {
	engine := newTestRouter(&config.ServerSection{Compression: true})
	acceptGzip := func(req *http.Request) { req.Header.Set("Accept-Encoding", "gzip") }

	assert.Equal(t, "gzip", get(engine, "/echo", acceptGzip).Header().Get("Content-Encoding"))
	assert.Empty(t, get(engine, "/api/v1/session/stream", acceptGzip).Header().Get("Content-Encoding"))
}

func TestWithPProf(t *testing.T) {
	engine := newTestRouter(&config.ServerSection{
		PProf:     true,
		BasicAuth: config.BasicAuth{Enabled: true, Username: "ops", Password: "secret"},
	})

	assert.Equal(t, http.StatusUnauthorized, get(engine, "/debug/pprof/cmdline", nil).Code)

	w := get(engine, "/debug/pprof/cmdline", func(req *http.Request) { req.SetBasicAuth("ops", "secret") })
	assert.Equal(t, http.StatusOK, w.Code)
}
