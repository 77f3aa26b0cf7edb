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
package v1

import (
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/model"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func currentCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	return code
}

func TestLoginLocal(t *testing.T) {
	f := newFixture(t)

	w := f.login("alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "authenticated", decode(t, w)["state"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(definitions.AuthPathLocal, definitions.ResultSuccess)))

	w = f.do(http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "authenticated", body["state"])
	assert.Equal(t, float64(idAlice), body["account_id"])
	assert.Equal(t, []any{"ADMINISTRATOR"}, body["roles"])
}

func TestLoginRejectedIsGeneric(t *testing.T) {
	testCases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "wrong-password"},
		{"unknown user", "nobody", testPassword},
		{"inactive", "carol", testPassword},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newFixture(t)

			w := f.do(http.MethodPost, "/api/v1/login", gin.H{"username": testCase.username, "password": testCase.password})

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, map[string]any{"error": msgRejected}, decode(t, w))
			assert.Empty(t, w.Result().Cookies())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(definitions.AuthPathLocal, definitions.ResultFail)))
		})
	}
}

func TestLoginInvalidInput(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/login", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginTwoFactor(t *testing.T) {
	f := newFixture(t)

	w := f.login("bob")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "two_factor_required", decode(t, w)["state"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(definitions.AuthPathLocal, definitions.ResultTwoFactor)))

	w = f.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, "two_factor_required", decode(t, w)["state"])

	w = f.do(http.MethodGet, "/api/v1/account", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a pending session grants nothing")

	w = f.do(http.MethodPost, "/api/v1/login/2fa", gin.H{"code": "abcdef"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, msgInvalidCode, decode(t, w)["error"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TwoFactorTotal.WithLabelValues(definitions.ResultFail)))

	w = f.do(http.MethodPost, "/api/v1/login/2fa", gin.H{"code": currentCode(t, testSecret)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "authenticated", decode(t, w)["state"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TwoFactorTotal.WithLabelValues(definitions.ResultSuccess)))

	w = f.do(http.MethodGet, "/api/v1/session", nil)
	body := decode(t, w)
	assert.Equal(t, "authenticated", body["state"])
	assert.Equal(t, float64(idBob), body["account_id"])

	w = f.do(http.MethodPost, "/api/v1/login/2fa", gin.H{"code": currentCode(t, testSecret)})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "the pending scope is gone")
}

func TestLoginTwoFactorSkippedForTrustedNetwork(t *testing.T) {
	f := newFixture(t, withTrustedRange("192.0.2.0", "192.0.2.255"))

	w := f.login("bob")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "authenticated", decode(t, w)["state"])
}

func TestLoginTwoFactorWithoutPendingSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/login/2fa", gin.H{"code": currentCode(t, testSecret)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, msgRejected, decode(t, w)["error"])
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.login("alice").Code)

	w := f.do(http.MethodPost, "/api/v1/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", decode(t, w)["state"])

	w = f.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, "anonymous", decode(t, w)["state"])
}

func TestSessionDemotedAfterDeactivation(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.login("dave").Code)
	require.NoError(t, f.store.SetActive(t.Context(), idDave, false))

	w := f.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, "anonymous", decode(t, w)["state"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsRevokedTotal))

	require.NoError(t, f.store.SetActive(t.Context(), idDave, true))

	w = f.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, "anonymous", decode(t, w)["state"], "the cleared cookie does not come back")
}

func TestSessionStream(t *testing.T) {
	f := newFixture(t, withRevalidationInterval(10*time.Millisecond))

	require.Equal(t, http.StatusOK, f.login("alice").Code)

	var calls atomic.Int32

	f.store.getHook = func(account *model.Account) {
		if calls.Add(1) > 2 {
			account.Active = false
		}
	}

	w := f.do(http.MethodGet, "/api/v1/session/stream", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:valid"))
	assert.Equal(t, 1, strings.Count(body, "event:revoked"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), `data:{"state":"anonymous"}`))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsRevokedTotal))
}

func TestSessionStreamRequiresSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/session/stream", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionStreamRejectsInactiveAccount(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.login("dave").Code)
	require.NoError(t, f.store.SetActive(t.Context(), idDave, false))

	w := f.do(http.MethodGet, "/api/v1/session/stream", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, "anonymous", decode(t, w)["state"])
}
