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
package logfx

import (
	"context"
	stdlog "log"
	"log/slog"
	"strings"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log"
	"github.com/croessner/portier/server/log/level"
	"go.uber.org/fx"
)

// Module provides the process logger and routes the standard library logger through it.
var Module = fx.Module("logfx",
	fx.Provide(NewLogger),
	fx.Invoke(BridgeStdLog),
)

// NewLogger configures the global logger from the server section.
func NewLogger(cfg *config.File) (*slog.Logger, error) {
	logLevel, err := log.ParseLevel(cfg.GetServer().GetLogLevel())
	if err != nil {
		return nil, err
	}

	logger := log.SetupLogging(logLevel, cfg.GetServer().IsLogJSON(), cfg.GetServer().GetInstanceName())

	slog.SetDefault(logger)

	return logger, nil
}

// slogStdWriter forwards lines of the standard library logger.
type slogStdWriter struct{ logger *slog.Logger }

func (w *slogStdWriter) Write(p []byte) (int, error) {
	_ = level.Info(w.logger).Log(definitions.LogKeyMsg, strings.TrimRight(string(p), "\n"))

	return len(p), nil
}

// BridgeStdLog wires the standard library log package to logger once the app starts.
func BridgeStdLog(lc fx.Lifecycle, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			stdlog.SetFlags(0)
			stdlog.SetOutput(&slogStdWriter{logger: logger})

			return nil
		},
	})
}
