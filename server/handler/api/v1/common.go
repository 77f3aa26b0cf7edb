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
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/handler/deps"
	"github.com/croessner/portier/server/log/level"
	"github.com/croessner/portier/server/session"
	"github.com/gin-gonic/gin"
)

const (
	msgRejected       = "authentication rejected"
	msgInvalidInput   = "invalid input"
	msgInternalError  = "internal server error"
	msgNotFound       = "not found"
	msgUnauthorized   = "unauthorized"
	msgInvalidCode    = "invalid code"
	msgWrongPassword  = "wrong password"
	msgUsernameExists = "username already exists"
)

func newTransport(ctx *gin.Context, d *deps.Deps) core.SessionTransport {
	return session.NewTransport(ctx, d.SessionCfg())
}

// statusOf maps service errors to a status and a client message. Rejection reasons are
// never sent to the client.
func statusOf(err error) (int, string) {
	switch {
	case stderrors.Is(err, errors.ErrAuthenticationRejected):
		return http.StatusUnauthorized, msgRejected
	case stderrors.Is(err, errors.ErrPasswordPolicy),
		stderrors.Is(err, errors.ErrPasswordMismatch),
		stderrors.Is(err, errors.ErrTwoFactorAlreadyEnabled),
		stderrors.Is(err, errors.ErrTwoFactorNotEnabled),
		stderrors.Is(err, errors.ErrNotLocalAccount),
		stderrors.Is(err, errors.ErrRoleNotFound):
		return http.StatusBadRequest, err.Error()
	case stderrors.Is(err, errors.ErrUsernameTaken):
		return http.StatusConflict, msgUsernameExists
	case stderrors.Is(err, errors.ErrRecordNotFound):
		return http.StatusNotFound, msgNotFound
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}

func abortWithError(ctx *gin.Context, logger *slog.Logger, err error) {
	status, message := statusOf(err)

	keyvals := []any{
		definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey),
		definitions.LogKeyMsg, "Request failed",
		definitions.LogKeyUriPath, ctx.Request.URL.Path,
		definitions.LogKeyStatus, status,
		definitions.LogKeyError, err,
	}

	var detailed *errors.DetailedError
	if stderrors.As(err, &detailed) && detailed.GetDetails() != "" {
		keyvals = append(keyvals, definitions.LogKeyErrorDetails, detailed.GetDetails())
	}

	if status >= http.StatusInternalServerError {
		level.Error(logger).Log(keyvals...)
	} else {
		level.Info(logger).Log(keyvals...)
	}

	ctx.AbortWithStatusJSON(status, gin.H{"error": message})
}

func abortInvalidInput(ctx *gin.Context) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidInput})
}

func paramID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortInvalidInput(ctx)

		return 0, false
	}

	return id, true
}
