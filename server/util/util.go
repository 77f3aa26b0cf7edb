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

package util

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/log/level"
)

// RedisLogger implements the interface redis.Logging
type RedisLogger struct {
	Logger *slog.Logger
}

// Printf implements the printf function from Redis.
func (r *RedisLogger) Printf(ctx context.Context, format string, values ...any) {
	// go-redis internals are logged at DEBUG only
	if r.Logger == nil || !r.Logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	level.Debug(r.Logger).Log(definitions.LogKeyMsg, fmt.Sprintf(format, values...), "source", "go-redis")
}

// FormatDurationMs formats a time.Duration as milliseconds with three fractional digits, e.g. "12.345ms".
func FormatDurationMs(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)

	return fmt.Sprintf("%.3fms", ms)
}

// WithNotAvailable returns a default "not available" string if the given value is an empty string.
func WithNotAvailable(value string) string {
	if value == "" {
		return definitions.NotAvailable
	}

	return value
}
