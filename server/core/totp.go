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
	"crypto/subtle"
	"strings"
	"time"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ReplayGuard records used TOTP time steps per account.
type ReplayGuard interface {
	// MarkUsed returns false if the step was already used by the account.
	MarkUsed(ctx context.Context, accountID int64, step uint64) (bool, error)
}

// TOTPVerifier checks six digit SHA1 codes with a 30 second period.
type TOTPVerifier struct {
	skew  uint
	guard ReplayGuard
	now   func() time.Time
}

// NewTOTPVerifier accepts codes up to skew periods before and after now. A nil guard
// disables replay protection.
func NewTOTPVerifier(skew uint, guard ReplayGuard) *TOTPVerifier {
	return &TOTPVerifier{skew: skew, guard: guard, now: time.Now}
}

// NewTOTPVerifierFromConfig wires the verifier from the security section.
func NewTOTPVerifierFromConfig(cfg *config.SecuritySection, guard ReplayGuard) *TOTPVerifier {
	if !cfg.IsTOTPReplayProtection() {
		guard = nil
	}

	return NewTOTPVerifier(cfg.GetTOTPSkew(), guard)
}

// ReplayWindow is how long a used step must be remembered.
func (v *TOTPVerifier) ReplayWindow() time.Duration {
	return ReplayWindow(v.skew)
}

// ReplayWindow covers every step accepted with the given skew.
func ReplayWindow(skew uint) time.Duration {
	return time.Duration(2*skew+1) * definitions.TOTPPeriod * time.Second
}

func (v *TOTPVerifier) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    definitions.TOTPPeriod,
		Skew:      v.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// NormalizeCode drops the separators users type between digit groups.
func NormalizeCode(code string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(code))
}

// Verify checks code against the base32 secret of the account.
func (v *TOTPVerifier) Verify(ctx context.Context, accountID int64, secret string, code string) error {
	if secret == "" {
		return errors.ErrTwoFactorNotEnabled
	}

	code = NormalizeCode(code)
	now := v.now()

	valid, err := totp.ValidateCustom(code, secret, now, v.opts())
	if err != nil || !valid {
		return errors.ErrTOTPCodeInvalid
	}

	if v.guard == nil {
		return nil
	}

	step, ok := v.matchingStep(secret, code, now)
	if !ok {
		return errors.ErrTOTPCodeInvalid
	}

	fresh, err := v.guard.MarkUsed(ctx, accountID, step)
	if err != nil {
		return err
	}

	if !fresh {
		return errors.ErrTOTPCodeReused
	}

	return nil
}

func (v *TOTPVerifier) matchingStep(secret string, code string, now time.Time) (uint64, bool) {
	opts := v.opts()
	counter := now.Unix() / definitions.TOTPPeriod

	for offset := -int64(v.skew); offset <= int64(v.skew); offset++ {
		step := counter + offset
		if step < 0 {
			continue
		}

		candidate, err := totp.GenerateCodeCustom(secret, time.Unix(step*definitions.TOTPPeriod, 0).UTC(), opts)
		if err != nil {
			return 0, false
		}

		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 {
			return uint64(step), true
		}
	}

	return 0, false
}
