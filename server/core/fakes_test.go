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
	"slices"
	"sync"

	"github.com/croessner/portier/server/backend"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/model"
	"github.com/google/uuid"
)

// memAccountStore keeps accounts in a map. InTx works on a copy that replaces the map
// only when fn succeeds.
type memAccountStore struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account
	nextID   int64
	inTx     bool

	createCalls int
	updateCalls int
	failUpdate  error
	failGet     error
}

var _ backend.AccountStore = (*memAccountStore)(nil)

func newMemAccountStore(accounts ...*model.Account) *memAccountStore {
	store := &memAccountStore{accounts: make(map[int64]*model.Account), nextID: 1}

	for _, account := range accounts {
		if account.ID == 0 {
			account.ID = store.nextID
		}

		if account.ID >= store.nextID {
			store.nextID = account.ID + 1
		}

		store.accounts[account.ID] = cloneAccount(account)
	}

	return store
}

func cloneAccount(account *model.Account) *model.Account {
	clone := *account
	clone.Roles = slices.Clone(account.Roles)

	if account.DirectoryGUID != nil {
		guid := *account.DirectoryGUID
		clone.DirectoryGUID = &guid
	}

	return &clone
}

func (s *memAccountStore) lock() func() {
	if s.inTx {
		return func() {}
	}

	s.mu.Lock()

	return s.mu.Unlock
}

func (s *memAccountStore) GetByID(_ context.Context, id int64) (*model.Account, error) {
	defer s.lock()()

	if s.failGet != nil {
		return nil, s.failGet
	}

	if account, found := s.accounts[id]; found {
		return cloneAccount(account), nil
	}

	return nil, errors.ErrRecordNotFound
}

func (s *memAccountStore) find(match func(*model.Account) bool) (*model.Account, error) {
	defer s.lock()()

	if s.failGet != nil {
		return nil, s.failGet
	}

	for _, account := range s.accounts {
		if match(account) {
			return cloneAccount(account), nil
		}
	}

	return nil, errors.ErrRecordNotFound
}

func (s *memAccountStore) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	return s.find(func(a *model.Account) bool { return a.Username == username })
}

func (s *memAccountStore) GetByDirectoryGUID(_ context.Context, guid uuid.UUID) (*model.Account, error) {
	return s.find(func(a *model.Account) bool { return a.DirectoryGUID != nil && *a.DirectoryGUID == guid })
}

func (s *memAccountStore) Create(_ context.Context, account *model.Account) error {
	defer s.lock()()

	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return errors.ErrUsernameTaken
		}
	}

	account.ID = s.nextID
	s.nextID++

	for index := range account.Roles {
		account.Roles[index].AccountID = account.ID
	}

	s.accounts[account.ID] = cloneAccount(account)
	s.createCalls++

	return nil
}

func (s *memAccountStore) Update(_ context.Context, account *model.Account) error {
	defer s.lock()()

	if s.failUpdate != nil {
		return s.failUpdate
	}

	if _, found := s.accounts[account.ID]; !found {
		return errors.ErrRecordNotFound
	}

	s.accounts[account.ID] = cloneAccount(account)
	s.updateCalls++

	return nil
}

func (s *memAccountStore) modify(id int64, fn func(*model.Account)) error {
	defer s.lock()()

	account, found := s.accounts[id]
	if !found {
		return errors.ErrRecordNotFound
	}

	fn(account)

	return nil
}

func (s *memAccountStore) SetTwoFactorFields(_ context.Context, account *model.Account) error {
	return s.modify(account.ID, func(stored *model.Account) {
		stored.TwoFactorEnabled = account.TwoFactorEnabled
		stored.TwoFactorSecret = account.TwoFactorSecret
	})
}

func (s *memAccountStore) SetPassword(_ context.Context, account *model.Account) error {
	return s.modify(account.ID, func(stored *model.Account) {
		stored.PasswordHash = account.PasswordHash
		stored.Salt = account.Salt
	})
}

func (s *memAccountStore) SetActive(_ context.Context, id int64, active bool) error {
	return s.modify(id, func(stored *model.Account) {
		stored.Active = active
	})
}

func (s *memAccountStore) RoleMatrix(_ context.Context, id int64) ([]model.RoleAssignment, error) {
	defer s.lock()()

	account, found := s.accounts[id]
	if !found {
		return nil, errors.ErrRecordNotFound
	}

	return slices.Clone(account.Roles), nil
}

func (s *memAccountStore) InTx(_ context.Context, fn func(backend.AccountStore) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memAccountStore{
		accounts:   make(map[int64]*model.Account, len(s.accounts)),
		nextID:     s.nextID,
		inTx:       true,
		failUpdate: s.failUpdate,
		failGet:    s.failGet,
	}

	for id, account := range s.accounts {
		tx.accounts[id] = cloneAccount(account)
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.accounts = tx.accounts
	s.nextID = tx.nextID
	s.createCalls += tx.createCalls
	s.updateCalls += tx.updateCalls

	return nil
}

func (s *memAccountStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.accounts)
}

// memTransport records session scopes like a cookie jar would.
type memTransport struct {
	scopes     map[string]Claims
	persistent map[string]bool
	failIssue  error
}

func newMemTransport() *memTransport {
	return &memTransport{scopes: make(map[string]Claims), persistent: make(map[string]bool)}
}

func (t *memTransport) IssueClaims(scope definitions.Scope, claims Claims, persistent bool) error {
	if t.failIssue != nil {
		return t.failIssue
	}

	t.scopes[scope.String()] = claims
	t.persistent[scope.String()] = persistent

	return nil
}

func (t *memTransport) ClearScope(scope definitions.Scope) error {
	delete(t.scopes, scope.String())
	delete(t.persistent, scope.String())

	return nil
}

func (t *memTransport) ReadClaims(scope definitions.Scope) (*Claims, bool) {
	claims, found := t.scopes[scope.String()]
	if !found {
		return nil, false
	}

	return &claims, true
}

// fakeDirectory returns a fixed result or error.
type fakeDirectory struct {
	result *model.DirectoryResult
	err    error
	calls  int
}

func (d *fakeDirectory) Authenticate(_ context.Context, _ string, _ string) (*model.DirectoryResult, error) {
	d.calls++

	if d.err != nil {
		return nil, d.err
	}

	result := *d.result
	result.Groups = slices.Clone(d.result.Groups)

	return &result, nil
}

type staticTrust map[string]bool

func (s staticTrust) IsTrustedOrigin(remote string) bool {
	return s[remote]
}
