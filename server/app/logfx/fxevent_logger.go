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
	"fmt"
	"log/slog"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log/level"
	"go.uber.org/fx/fxevent"
)

// FxEventLogger reports the lifecycle of the fx application. Wiring details are logged at debug.
type FxEventLogger struct {
	logger *slog.Logger
}

func NewFxEventLogger(logger *slog.Logger) fxevent.Logger {
	return &FxEventLogger{logger: logger}
}

func (l *FxEventLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.Started:
		l.result("Application started", e.Err)
	case *fxevent.Stopped:
		l.result("Application stopped", e.Err)
	case *fxevent.RollingBack:
		level.Warn(l.logger).Log(definitions.LogKeyMsg, "Start failed, rolling back", definitions.LogKeyError, e.StartErr)
	case *fxevent.RolledBack:
		l.result("Rolled back", e.Err)
	case *fxevent.OnStartExecuted:
		l.hook("OnStart hook executed", e.FunctionName, e.Err)
	case *fxevent.OnStopExecuted:
		l.hook("OnStop hook executed", e.FunctionName, e.Err)
	case *fxevent.Invoked:
		l.hook("Invoked", e.FunctionName, e.Err)
	case *fxevent.Provided:
		if e.Err != nil {
			level.Error(l.logger).Log(definitions.LogKeyMsg, "Provide failed", "constructor", e.ConstructorName, definitions.LogKeyError, e.Err)
		}
	default:
		level.Debug(l.logger).Log(definitions.LogKeyMsg, "fx event", "type", fmt.Sprintf("%T", event))
	}
}

func (l *FxEventLogger) result(msg string, err error) {
	if err != nil {
		level.Error(l.logger).Log(definitions.LogKeyMsg, msg, definitions.LogKeyError, err)

		return
	}

	level.Info(l.logger).Log(definitions.LogKeyMsg, msg)
}

func (l *FxEventLogger) hook(msg string, callee string, err error) {
	if err != nil {
		level.Error(l.logger).Log(definitions.LogKeyMsg, msg, "callee", callee, definitions.LogKeyError, err)

		return
	}

	level.Debug(l.logger).Log(definitions.LogKeyMsg, msg, "callee", callee)
}
