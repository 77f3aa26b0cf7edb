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
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log/level"
	"github.com/gin-gonic/gin"
	"github.com/pires/go-proxyproto"
	"go.uber.org/fx"
	"golang.org/x/net/http2"
)

// Server owns the listener and the http.Server.
type Server struct {
	cfg        *config.ServerSection
	httpServer *http.Server
	logger     *slog.Logger
	shutdowner fx.Shutdowner

	listener net.Listener
	done     chan struct{}
}

// NewServer prepares the server and binds it to the lifecycle. The listener is opened on
// start so a busy port fails the app start.
func NewServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.File, engine *gin.Engine, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg.GetServer(),
		httpServer: newHTTPServer(cfg.GetServer(), engine, logger),
		logger:     logger,
		shutdowner: shutdowner,
		done:       make(chan struct{}),
	}

	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})

	return s
}

// newHTTPServer has no write timeout because the session stream stays open for the whole
// lifetime of a browser tab. Request contexts are canceled on shutdown so open streams end.
func newHTTPServer(cfg *config.ServerSection, handler http.Handler, logger *slog.Logger) *http.Server {
	baseCtx, cancel := context.WithCancel(context.Background())

	h2Server := &http2.Server{
		MaxConcurrentStreams: 250,
		MaxReadFrameSize:     1 << 20,
		IdleTimeout:          time.Minute,
	}

	server := &http.Server{
		Addr:              cfg.GetAddress(),
		Handler:           handler,
		IdleTimeout:       time.Minute,
		ReadTimeout:       10 * time.Second, //nolint:gomnd // Ignore
		ReadHeaderTimeout: 10 * time.Second, //nolint:gomnd // Ignore
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	server.RegisterOnShutdown(cancel)

	if err := http2.ConfigureServer(server, h2Server); err != nil {
		level.Error(logger).Log(definitions.LogKeyMsg, "Failed to configure HTTP/2 server", "error", err)
	}

	return server
}

// Addr is the bound address. It is nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

func (s *Server) Start(context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	if s.cfg.IsHAProxyV2() {
		listener = &proxyproto.Listener{
			Listener: listener,
			ConnPolicy: func(proxyproto.ConnPolicyOptions) (proxyproto.Policy, error) {
				return proxyproto.REQUIRE, nil
			},
		}
	}

	s.listener = listener

	level.Info(s.logger).Log(
		definitions.LogKeyMsg, "HTTP server listening",
		"address", listener.Addr().String(),
		"tls", s.cfg.GetTLS().IsEnabled(),
		"haproxy_v2", s.cfg.IsHAProxyV2(),
	)

	go s.serve()

	return nil
}

func (s *Server) serve() {
	defer close(s.done)

	var err error

	if tls := s.cfg.GetTLS(); tls.IsEnabled() {
		err = s.httpServer.ServeTLS(s.listener, tls.Cert, tls.Key)
	} else {
		err = s.httpServer.Serve(s.listener)
	}

	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		level.Error(s.logger).Log(definitions.LogKeyMsg, "HTTP server error", "error", err)

		_ = s.shutdowner.Shutdown(fx.ExitCode(1))
	}
}

// Stop waits for in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}

	err := s.httpServer.Shutdown(ctx)

	select {
	case <-s.done:
	case <-ctx.Done():
	}

	level.Info(s.logger).Log(definitions.LogKeyMsg, "HTTP server stopped")

	return err
}
