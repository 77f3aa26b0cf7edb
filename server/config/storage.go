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
)

type SQLSection struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0,max=1000"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0,max=1000"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"omitempty,max=24h"`
}

func (s *SQLSection) GetDSN() string {
	if s == nil {
		return ""
	}

	return s.DSN
}

func (s *SQLSection) GetMaxOpenConns() int {
	if s == nil {
		return 0
	}

	return s.MaxOpenConns
}

func (s *SQLSection) GetMaxIdleConns() int {
	if s == nil {
		return 0
	}

	return s.MaxIdleConns
}

func (s *SQLSection) GetConnMaxLifetime() time.Duration {
	if s == nil {
		return 0
	}

	return s.ConnMaxLifetime
}

// RedisSection is optional. Without an address the process keeps TOTP replay state in memory.
type RedisSection struct {
	Address  string `mapstructure:"address" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0,max=15"`
}

func (r *RedisSection) IsConfigured() bool {
	return r != nil && r.Address != ""
}

func (r *RedisSection) GetAddress() string {
	if r == nil {
		return ""
	}

	return r.Address
}

func (r *RedisSection) GetPassword() string {
	if r == nil {
		return ""
	}

	return r.Password
}

func (r *RedisSection) GetDB() int {
	if r == nil {
		return 0
	}

	return r.DB
}
