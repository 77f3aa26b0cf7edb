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
package core

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/croessner/portier/server/model"
	"golang.org/x/sync/singleflight"
)

const sharedLookupTimeout = 5 * time.Second

// SharedLookup collapses concurrent lookups of the same account into one store query. Every
// caller gets its own copy of the account.
type SharedLookup struct {
	accounts AccountLookup
	group    singleflight.Group
}

func NewSharedLookup(accounts AccountLookup) *SharedLookup {
	return &SharedLookup{accounts: accounts}
}

// GetByID does not let the cancellation of one caller fail the others.
func (l *SharedLookup) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	value, err, _ := l.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()

		return l.accounts.GetByID(lookupCtx, id)
	})
	if err != nil {
		return nil, err
	}

	account := *value.(*model.Account)
	account.Roles = slices.Clone(account.Roles)

	return &account, nil
}
