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
	"errors"
	"testing"
	"time"

	"github.com/croessner/portier/server/config"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayGuardMarkUsed(t *testing.T) {
	db, mock := redismock.NewClientMock()
	guard := NewReplayGuard(db, 2*time.Minute)

	mock.ExpectSetNX("portier:totp:used:7:1234", 1, 2*time.Minute).SetVal(true)
	mock.ExpectSetNX("portier:totp:used:7:1234", 1, 2*time.Minute).SetVal(false)

	first, err := guard.MarkUsed(context.Background(), 7, 1234)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := guard.MarkUsed(context.Background(), 7, 1234)
	require.NoError(t, err)
	assert.False(t, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplayGuardRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	guard := NewReplayGuard(db, time.Minute)

	mock.ExpectSetNX(ReplayKey(1, 1), 1, time.Minute).SetErr(errors.New("connection refused"))

	ok, err := guard.MarkUsed(context.Background(), 1, 1)

	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewClientWithoutAddress(t *testing.T) {
	assert.Nil(t, NewClient(&config.RedisSection{}, nil))
	assert.Nil(t, NewClient(nil, nil))
}
