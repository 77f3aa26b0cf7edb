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

package config

import (
	"github.com/croessner/portier/server/definitions"
)

// IPRange is one inclusive range of trusted IPv4 addresses.
type IPRange struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

type SecuritySection struct {
	// Malformed entries are skipped at runtime and therefore not validated here.
	TrustedIPRanges      []IPRange `mapstructure:"trusted_ip_ranges"`
	TOTPIssuer           string    `mapstructure:"totp_issuer" validate:"omitempty,printascii,excludes=:"`
	TOTPSkew             uint      `mapstructure:"totp_skew" validate:"max=10"`
	TOTPReplayProtection bool      `mapstructure:"totp_replay_protection"`
}

func (s *SecuritySection) GetTrustedIPRanges() []IPRange {
	if s == nil || s.TrustedIPRanges == nil {
		return []IPRange{}
	}

	return s.TrustedIPRanges
}

func (s *SecuritySection) GetTOTPIssuer() string {
	if s == nil || s.TOTPIssuer == "" {
		return definitions.DefaultTOTPIssuer
	}

	return s.TOTPIssuer
}

func (s *SecuritySection) GetTOTPSkew() uint {
	if s == nil {
		return definitions.DefaultTOTPSkew
	}

	return s.TOTPSkew
}

func (s *SecuritySection) IsTOTPReplayProtection() bool {
	if s == nil {
		return false
	}

	return s.TOTPReplayProtection
}
