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
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/model"
	"github.com/croessner/portier/server/stats"
)

// AccountLookup fetches one account by id.
type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
}

// CheckAccount is the revalidation rule: the account must exist and be active. A store
// failure counts as a failed check.
func CheckAccount(ctx context.Context, accounts AccountLookup, id int64) error {
	if id <= 0 {
		return errors.ErrSessionInvalid
	}

	account, err := accounts.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return fmt.Errorf("%w: account %d deleted", errors.ErrSessionRevoked, id)
		}

		return fmt.Errorf("%w: %w", errors.ErrSessionRevoked, err)
	}

	if !account.Active {
		return fmt.Errorf("%w: account %d inactive", errors.ErrSessionRevoked, id)
	}

	return nil
}

// CheckClaims applies CheckAccount to the account id claim.
func CheckClaims(ctx context.Context, accounts AccountLookup, claims *Claims) error {
	if claims == nil {
		return errors.ErrSessionInvalid
	}

	id, ok := model.ParseAccountID(claims.AccountID)
	if !ok {
		return errors.ErrSessionInvalid
	}

	return CheckAccount(ctx, accounts, id)
}

// Revalidator watches one session. Once revoked it stays revoked.
//
// The first check runs once and its result is reused until the first tick.
type Revalidator struct {
	accounts AccountLookup
	claims   *Claims
	interval time.Duration
	logger   *slog.Logger
	metrics  *stats.Metrics

	once    sync.Once
	initial error
	revoked atomic.Bool
}

func NewRevalidator(accounts AccountLookup, claims *Claims, interval time.Duration, logger *slog.Logger, metrics *stats.Metrics) *Revalidator {
	if interval <= 0 {
		interval = definitions.DefaultRevalidationInterval
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Revalidator{
		accounts: accounts,
		claims:   claims,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Initial returns the cached result of the first check.
func (r *Revalidator) Initial(ctx context.Context) error {
	r.once.Do(func() {
		r.initial = CheckClaims(ctx, r.accounts, r.claims)
		if r.initial != nil && ctx.Err() == nil {
			r.revoke(r.initial)
		}
	})

	return r.initial
}

// Revoked reports whether the session was demoted.
func (r *Revalidator) Revoked() bool {
	return r.revoked.Load()
}

// Tick runs one check. After a failed check every further tick fails without asking the store.
func (r *Revalidator) Tick(ctx context.Context) error {
	if r.revoked.Load() {
		return errors.ErrSessionRevoked
	}

	if err := CheckClaims(ctx, r.accounts, r.claims); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.revoke(err)

		return err
	}

	return nil
}

func (r *Revalidator) revoke(reason error) {
	if r.revoked.Swap(true) {
		return
	}

	if r.metrics != nil {
		r.metrics.SessionsRevokedTotal.Inc()
	}

	var accountID string
	if r.claims != nil {
		accountID = r.claims.AccountID
	}

	level.Info(r.logger).Log(
		definitions.LogKeyMsg, "Session revoked",
		definitions.LogKeyAccountID, accountID,
		definitions.LogKeyReason, reason,
	)
}

// Run performs the initial check and then one check per interval. notify receives every
// result. Run returns nil when ctx ends and the revocation reason when the session is demoted.
// Ending ctx stops the checks but does not revoke the session.
func (r *Revalidator) Run(ctx context.Context, notify func(error)) error {
	if err := r.Initial(ctx); err != nil {
		if notify != nil {
			notify(err)
		}

		return err
	}

	if notify != nil {
		notify(nil)
	}

	ticker := time.NewTicker(r.interval)

	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := r.Tick(ctx)
			if err != nil && ctx.Err() != nil {
				return nil
			}

			if notify != nil {
				notify(err)
			}

			if err != nil {
				return err
			}
		}
	}
}
