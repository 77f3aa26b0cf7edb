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
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"

	"github.com/croessner/portier/server/backend"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/model"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrCodeSize = 200

// Enrollment is the material a user needs to add the account to an authenticator app.
type Enrollment struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	QRCode string `json:"qr_code"`
}

// TwoFactorEnrollment enables and disables TOTP for accounts.
type TwoFactorEnrollment struct {
	accounts backend.AccountStore
	verifier *TOTPVerifier
	issuer   string
}

func NewTwoFactorEnrollment(accounts backend.AccountStore, verifier *TOTPVerifier, issuer string) *TwoFactorEnrollment {
	if issuer == "" {
		issuer = definitions.DefaultTOTPIssuer
	}

	return &TwoFactorEnrollment{accounts: accounts, verifier: verifier, issuer: issuer}
}

// Begin creates a fresh secret. Nothing is stored until Enable succeeds.
func (e *TwoFactorEnrollment) Begin(account *model.Account) (*Enrollment, error) {
	if account.TwoFactorEnabled {
		return nil, errors.ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: account.Username,
		Period:      definitions.TOTPPeriod,
		SecretSize:  definitions.TOTPSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	if err = png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return &Enrollment{
		Secret: key.Secret(),
		URI:    key.URL(),
		QRCode: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Enable stores secret once code proves the authenticator was set up.
func (e *TwoFactorEnrollment) Enable(ctx context.Context, account *model.Account, secret string, code string) error {
	if account.TwoFactorEnabled {
		return errors.ErrTwoFactorAlreadyEnabled
	}

	secret = strings.ToUpper(strings.ReplaceAll(secret, " ", ""))

	if err := e.verifier.Verify(ctx, account.ID, secret, code); err != nil {
		return err
	}

	account.TwoFactorEnabled = true
	account.TwoFactorSecret = secret

	return e.accounts.SetTwoFactorFields(ctx, account)
}

// Disable removes the secret. The current code is required.
func (e *TwoFactorEnrollment) Disable(ctx context.Context, account *model.Account, code string) error {
	if !account.TwoFactorEnabled {
		return errors.ErrTwoFactorNotEnabled
	}

	if err := e.verifier.Verify(ctx, account.ID, account.TwoFactorSecret, code); err != nil {
		return err
	}

	account.TwoFactorEnabled = false
	account.TwoFactorSecret = ""

	return e.accounts.SetTwoFactorFields(ctx, account)
}
