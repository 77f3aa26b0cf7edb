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

package rediscli

import (
	"context"
	"fmt"
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/redis/go-redis/v9"
)

// ReplayGuard remembers used TOTP time steps in Redis, so all instances share them.
type ReplayGuard struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewReplayGuard(client redis.Cmdable, ttl time.Duration) *ReplayGuard {
	return &ReplayGuard{client: client, ttl: ttl}
}

// ReplayKey is the key that marks a time step of an account as used.
func ReplayKey(accountID int64, step uint64) string {
	return fmt.Sprintf("%s%d:%d", definitions.RedisReplayPrefix, accountID, step)
}

// MarkUsed returns false if the step had already been used.
func (g *ReplayGuard) MarkUsed(ctx context.Context, accountID int64, step uint64) (bool, error) {
	return g.client.SetNX(ctx, ReplayKey(accountID, step), 1, g.ttl).Result()
}
