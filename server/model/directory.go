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

package model

import (
	"strings"

	"github.com/google/uuid"
)

// DirectoryResult is what one successful directory authentication yields. It is
// never stored.
type DirectoryResult struct {
	GUID          uuid.UUID
	AutoProvision bool
	Groups        []string

	CommonName  string
	Mail        string
	DisplayName string
	GivenName   string
	Surname     string
}

// FullName joins given name and surname the way new directory accounts are named.
func (r *DirectoryResult) FullName() string {
	return r.GivenName + " " + r.Surname
}

// NormalizedUsername is the upper-cased directory account name.
func NormalizedUsername(username string) string {
	return strings.ToUpper(username)
}
