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
	"time"

	"github.com/croessner/portier/server/definitions"
)

// SessionSection configures the cookie transport of both session scopes.
type SessionSection struct {
	Secret               string        `mapstructure:"secret" validate:"omitempty,min=32"`
	EncryptionKey        string        `mapstructure:"encryption_key" validate:"omitempty,len=32"`
	FullCookie           string        `mapstructure:"full_cookie" validate:"omitempty,printascii,excludesall= ;="`
	PendingCookie        string        `mapstructure:"pending_cookie" validate:"omitempty,printascii,excludesall= ;=,nefield=FullCookie"`
	MaxAge               time.Duration `mapstructure:"max_age" validate:"omitempty,min=1m"`
	PendingMaxAge        time.Duration `mapstructure:"pending_max_age" validate:"omitempty,min=30s,max=1h"`
	Secure               bool          `mapstructure:"secure"`
	RevalidationInterval time.Duration `mapstructure:"revalidation_interval" validate:"omitempty,min=1s"`
}

func (s *SessionSection) GetSecret() string {
	if s == nil {
		return ""
	}

	return s.Secret
}

func (s *SessionSection) GetEncryptionKey() string {
	if s == nil {
		return ""
	}

	return s.EncryptionKey
}

func (s *SessionSection) GetFullCookie() string {
	if s == nil || s.FullCookie == "" {
		return definitions.DefaultFullCookie
	}

	return s.FullCookie
}

func (s *SessionSection) GetPendingCookie() string {
	if s == nil || s.PendingCookie == "" {
		return definitions.DefaultPendingCookie
	}

	return s.PendingCookie
}

func (s *SessionSection) GetMaxAge() time.Duration {
	if s == nil || s.MaxAge <= 0 {
		return definitions.DefaultSessionMaxAge
	}

	return s.MaxAge
}

func (s *SessionSection) GetPendingMaxAge() time.Duration {
	if s == nil || s.PendingMaxAge <= 0 {
		return definitions.DefaultPendingMaxAge
	}

	return s.PendingMaxAge
}

func (s *SessionSection) IsSecure() bool {
	if s == nil {
		return true
	}

	return s.Secure
}

func (s *SessionSection) GetRevalidationInterval() time.Duration {
	if s == nil || s.RevalidationInterval <= 0 {
		return definitions.DefaultRevalidationInterval
	}

	return s.RevalidationInterval
}
