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

// Package level lets call sites write level.Info(logger).Log("msg", "...", "k", v)
// on top of log/slog.
package level

import (
	"context"
	"log/slog"
	"reflect"
)

// Logger accepts alternating key/value pairs. A "msg" key with a string value
// becomes the record message, every other pair an attribute. Pairs with a
// non-string key and a trailing odd key are dropped.
type Logger interface {
	Log(keyvals ...any) error
}

type leveled struct {
	l   *slog.Logger
	lvl slog.Level
	ctx context.Context
}

func newLeveled(l *slog.Logger, lvl slog.Level) Logger {
	if l == nil {
		l = slog.Default()
	}

	return &leveled{l: l, lvl: lvl, ctx: context.Background()}
}

// WithContext returns an info logger that hands ctx to the slog handler.
func WithContext(ctx context.Context, l *slog.Logger) Logger {
	lg := newLeveled(l, slog.LevelInfo).(*leveled)
	lg.ctx = ctx

	return lg
}

func Debug(l *slog.Logger) Logger { return newLeveled(l, slog.LevelDebug) }

func Info(l *slog.Logger) Logger { return newLeveled(l, slog.LevelInfo) }

func Warn(l *slog.Logger) Logger { return newLeveled(l, slog.LevelWarn) }

func Error(l *slog.Logger) Logger { return newLeveled(l, slog.LevelError) }

func (s *leveled) Log(keyvals ...any) error {
	if !s.l.Enabled(s.ctx, s.lvl) {
		return nil
	}

	var msg string

	attrs := make([]slog.Attr, 0, len(keyvals)/2)

	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}

		value := keyvals[i+1]

		if key == "msg" {
			if str, ok := value.(string); ok {
				msg = str

				continue
			}
		}

		// slog.Any panics on some typed nils
		if isNil(value) {
			attrs = append(attrs, slog.String(key, "<nil>"))

			continue
		}

		if err, ok := value.(error); ok {
			attrs = append(attrs, slog.String(key, err.Error()))

			continue
		}

		attrs = append(attrs, slog.Any(key, value))
	}

	if msg == "" {
		msg = defaultMessage(s.lvl)
	}

	s.l.LogAttrs(s.ctx, s.lvl, msg, attrs...)

	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

func defaultMessage(lvl slog.Level) string {
	switch lvl {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelInfo:
		return "info"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "log"
	}
}
