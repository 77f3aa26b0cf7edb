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

package localcache

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// ReplayGuard remembers used TOTP time steps in process memory.
type ReplayGuard struct {
	cache *cache.Cache
}

// NewReplayGuard keeps every entry for ttl, which must cover the accepted skew window.
func NewReplayGuard(ttl time.Duration) *ReplayGuard {
	return &ReplayGuard{cache: cache.New(ttl, 2*ttl)}
}

// MarkUsed records the time step for the account. It returns false if it was already used.
func (g *ReplayGuard) MarkUsed(_ context.Context, accountID int64, step uint64) (bool, error) {
	key := fmt.Sprintf("%d:%d", accountID, step)

	if err := g.cache.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		return false, nil
	}

	return true, nil
}
