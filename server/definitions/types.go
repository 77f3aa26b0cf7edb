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

package definitions

// AccountKind tells where the credentials of an account live.
type AccountKind uint8

const (
	// AccountKindLocal accounts are verified against the stored salted hash.
	AccountKindLocal AccountKind = iota + 1

	// AccountKindDirectory accounts are verified by a directory bind.
	AccountKindDirectory
)

func (k AccountKind) String() string {
	switch k {
	case AccountKindLocal:
		return "local"
	case AccountKindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Scope names one of the two concurrent session scopes.
type Scope uint8

const (
	// ScopeFull holds the account id and all role names.
	ScopeFull Scope = iota + 1

	// ScopePending holds only the account id while the second factor is outstanding.
	ScopePending
)

func (s Scope) String() string {
	switch s {
	case ScopeFull:
		return "full"
	case ScopePending:
		return "pending"
	default:
		return "unknown"
	}
}
