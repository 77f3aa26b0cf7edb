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
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/croessner/portier/server/backend"
	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/core"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/handler/deps"
	"github.com/croessner/portier/server/localcache"
	"github.com/croessner/portier/server/model"
	"github.com/croessner/portier/server/session"
	"github.com/croessner/portier/server/stats"
	"github.com/croessner/portier/server/trustnet"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "JBSWY3DPEHPK3PXP"
	testPassword = "secret1"
	testBaseURL  = "http://portier.test"

	roleAdmin int64 = 1
	roleStaff int64 = 2

	idAlice int64 = 1
	idBob   int64 = 2
	idCarol int64 = 3
	idDave  int64 = 4
)

type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account
	nextID   int64

	// getHook may change the copy returned by GetByID.
	getHook func(account *model.Account)
}

var _ backend.AccountStore = (*memStore)(nil)

func clone(account *model.Account) *model.Account {
	c := *account
	c.Roles = slices.Clone(account.Roles)

	return &c
}

func (s *memStore) GetByID(_ context.Context, id int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, found := s.accounts[id]
	if !found {
		return nil, errors.ErrRecordNotFound
	}

	result := clone(account)
	if s.getHook != nil {
		s.getHook(result)
	}

	return result, nil
}

func (s *memStore) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if account.Username == username {
			return clone(account), nil
		}
	}

	return nil, errors.ErrRecordNotFound
}

func (s *memStore) GetByDirectoryGUID(context.Context, uuid.UUID) (*model.Account, error) {
	return nil, errors.ErrRecordNotFound
}

func (s *memStore) Create(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return errors.ErrUsernameTaken
		}
	}

	account.ID = s.nextID
	s.nextID++
	s.accounts[account.ID] = clone(account)

	return nil
}

func (s *memStore) Update(_ context.Context, account *model.Account) error {
	return s.modify(account.ID, func(stored *model.Account) { *stored = *clone(account) })
}

func (s *memStore) modify(id int64, fn func(*model.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, found := s.accounts[id]
	if !found {
		return errors.ErrRecordNotFound
	}

	fn(account)

	return nil
}

func (s *memStore) SetTwoFactorFields(_ context.Context, account *model.Account) error {
	return s.modify(account.ID, func(stored *model.Account) {
		stored.TwoFactorEnabled = account.TwoFactorEnabled
		stored.TwoFactorSecret = account.TwoFactorSecret
	})
}

func (s *memStore) SetPassword(_ context.Context, account *model.Account) error {
	return s.modify(account.ID, func(stored *model.Account) {
		stored.PasswordHash = account.PasswordHash
		stored.Salt = account.Salt
	})
}

func (s *memStore) SetActive(_ context.Context, id int64, active bool) error {
	return s.modify(id, func(stored *model.Account) { stored.Active = active })
}

func (s *memStore) RoleMatrix(ctx context.Context, id int64) ([]model.RoleAssignment, error) {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return account.Roles, nil
}

func (s *memStore) InTx(_ context.Context, fn func(backend.AccountStore) error) error {
	return fn(s)
}

func (s *memStore) get(id int64) *model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	return clone(s.accounts[id])
}

type memRoleStore struct {
	mu     sync.Mutex
	roles  []model.Role
	nextID int64
}

var _ backend.RoleStore = (*memRoleStore)(nil)

func (s *memRoleStore) ListRoles(context.Context) ([]model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.roles), nil
}

func (s *memRoleStore) index(id int64) int {
	return slices.IndexFunc(s.roles, func(role model.Role) bool { return role.ID == id })
}

func (s *memRoleStore) GetRole(_ context.Context, id int64) (*model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(id); i >= 0 {
		role := s.roles[i]

		return &role, nil
	}

	return nil, errors.ErrRecordNotFound
}

func (s *memRoleStore) CreateRole(_ context.Context, role *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	role.ID = s.nextID
	s.nextID++
	s.roles = append(s.roles, *role)

	return nil
}

func (s *memRoleStore) UpdateRole(_ context.Context, role *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(role.ID)
	if i < 0 {
		return errors.ErrRecordNotFound
	}

	s.roles[i] = *role

	return nil
}

func (s *memRoleStore) DeleteRole(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return errors.ErrRecordNotFound
	}

	s.roles = slices.Delete(s.roles, i, i+1)

	return nil
}

type fixture struct {
	t       *testing.T
	engine  *gin.Engine
	store   *memStore
	roles   *memRoleStore
	cache   *localcache.RoleCache
	metrics *stats.Metrics
	jar     *cookiejar.Jar
}

type fixtureOption func(cfg *config.File)

func withTrustedRange(from string, to string) fixtureOption {
	return func(cfg *config.File) {
		cfg.Security.TrustedIPRanges = append(cfg.Security.TrustedIPRanges, config.IPRange{From: from, To: to})
	}
}

func withRevalidationInterval(interval time.Duration) fixtureOption {
	return func(cfg *config.File) {
		cfg.Session.RevalidationInterval = interval
	}
}

func localAccount(t *testing.T, hasher *core.PasswordHasher, id int64, username string, roleIDs ...int64) *model.Account {
	t.Helper()

	salt, err := core.NewSalt()
	require.NoError(t, err)

	hash, err := hasher.Hash(testPassword, salt)
	require.NoError(t, err)

	account := &model.Account{
		ID:             id,
		Username:       username,
		PasswordHash:   hash,
		Salt:           salt,
		Kind:           definitions.AccountKindLocal,
		Active:         true,
		LockoutEnabled: true,
	}

	for _, roleID := range roleIDs {
		account.Roles = append(account.Roles, model.RoleAssignment{AccountID: id, RoleID: roleID, Active: true})
	}

	return account
}

// newFixture wires the HTTP API on in-memory stores. alice is an administrator, bob has
// TOTP enabled, carol is inactive and dave is staff.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := &config.File{
		Session: &config.SessionSection{
			Secret:        strings.Repeat("s", 32),
			EncryptionKey: strings.Repeat("e", 32),
			MaxAge:        time.Hour,
			PendingMaxAge: time.Minute,
			Secure:        false,
		},
		Security: &config.SecuritySection{TOTPSkew: 1},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := &core.PasswordHasher{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32}

	bob := localAccount(t, hasher, idBob, "bob", roleStaff)
	bob.TwoFactorEnabled = true
	bob.TwoFactorSecret = testSecret

	carol := localAccount(t, hasher, idCarol, "carol")
	carol.Active = false

	store := &memStore{
		accounts: map[int64]*model.Account{
			idAlice: localAccount(t, hasher, idAlice, "alice", roleAdmin),
			idBob:   bob,
			idCarol: carol,
			idDave:  localAccount(t, hasher, idDave, "dave", roleStaff),
		},
		nextID: 5,
	}

	seed := []model.Role{
		{ID: roleAdmin, Name: "Administrator", NormalizedName: definitions.RoleAdministrator},
		{ID: roleStaff, Name: "Staff", NormalizedName: "STAFF"},
	}
	roles := &memRoleStore{roles: slices.Clone(seed), nextID: 3}
	cache := localcache.NewRoleCache(seed...)
	metrics := stats.NewMetrics(prometheus.NewRegistry())
	verifier := core.NewTOTPVerifierFromConfig(cfg.GetSecurity(), nil)

	d := &deps.Deps{
		Cfg:      cfg,
		Logger:   logger,
		Metrics:  metrics,
		Accounts: store,
		Login: core.NewLoginService(core.LoginDeps{
			Accounts: store,
			Mapper:   core.NewRoleMapper(cache),
			Verifier: hasher,
			Logger:   logger,
			Metrics:  metrics,
		}),
		Sessions: core.NewSessionManager(core.SessionDeps{
			Accounts: store,
			Roles:    cache,
			Trust:    trustnet.NewClassifier(cfg.GetSecurity().GetTrustedIPRanges(), logger),
			TOTP:     verifier,
			Logger:   logger,
			Metrics:  metrics,
		}),
		TwoFactor: core.NewTwoFactorEnrollment(store, verifier, "PortierTest"),
		Passwords: core.NewPasswordService(store, hasher),
		Admin:     core.NewAdminService(store, roles, cache, hasher, metrics),
	}

	engine := gin.New()
	engine.Use(session.Middleware(cfg.GetSession(), session.NewStore(cfg.GetSession())))

	NewAuthAPI(d).Register(engine)
	NewAccountAPI(d).Register(engine)
	NewAdminAPI(d).Register(engine)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &fixture{t: t, engine: engine, store: store, roles: roles, cache: cache, metrics: metrics, jar: jar}
}

// do sends a request with the cookies of earlier responses and stores the new ones.
func (f *fixture) do(method string, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()

	var reader io.Reader

	if body != nil {
		switch value := body.(type) {
		case string:
			reader = strings.NewReader(value)
		default:
			raw, err := json.Marshal(value)
			require.NoError(f.t, err)

			reader = strings.NewReader(string(raw))
		}
	}

	target, err := url.Parse(testBaseURL + path)
	require.NoError(f.t, err)

	req := httptest.NewRequest(method, target.String(), reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, cookie := range f.jar.Cookies(target) {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	f.jar.SetCookies(target, w.Result().Cookies())

	return w
}

func (f *fixture) login(username string) *httptest.ResponseRecorder {
	f.t.Helper()

	return f.do(http.MethodPost, "/api/v1/login", gin.H{"username": username, "password": testPassword})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body
}
