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

// Package log builds the process logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
)

var (
	mu sync.Mutex

	// Logger is the process wide logger. It discards output until SetupLogging ran.
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.ErrWrongLogLevel
	}
}

// SetupLogging initializes the global Logger and returns it.
func SetupLogging(logLevel slog.Level, formatJSON bool, instance string) *slog.Logger {
	return SetupLoggingWithWriter(os.Stdout, logLevel, formatJSON, instance)
}

// SetupLoggingWithWriter is SetupLogging with an explicit destination.
func SetupLoggingWithWriter(w io.Writer, logLevel slog.Level, formatJSON bool, instance string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: logLevel, AddSource: logLevel == slog.LevelDebug}

	if formatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler).With(definitions.LogKeyInstance, instance)

	mu.Lock()

	Logger = logger

	mu.Unlock()

	return logger
}
