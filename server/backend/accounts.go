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

package backend

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AccountStore persists accounts and their role assignments.
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByDirectoryGUID(ctx context.Context, guid uuid.UUID) (*model.Account, error)

	// Create inserts the account and its role assignments and sets account.ID.
	Create(ctx context.Context, account *model.Account) error

	// Update writes every field and replaces the role assignments.
	Update(ctx context.Context, account *model.Account) error

	SetTwoFactorFields(ctx context.Context, account *model.Account) error
	SetPassword(ctx context.Context, account *model.Account) error
	SetActive(ctx context.Context, id int64, active bool) error

	// RoleMatrix lists one assignment per known role. Roles the account does not hold are
	// returned as inactive placeholders.
	RoleMatrix(ctx context.Context, id int64) ([]model.RoleAssignment, error)

	// InTx runs fn with a store bound to one transaction. Calls on a store that is
	// already bound join the running transaction.
	InTx(ctx context.Context, fn func(AccountStore) error) error
}

// SQLAccountStore implements AccountStore on PostgreSQL.
type SQLAccountStore struct {
	db *sql.DB
	q  querier
	tx bool
}

var _ AccountStore = (*SQLAccountStore)(nil)

func NewSQLAccountStore(db *sql.DB) *SQLAccountStore {
	return &SQLAccountStore{db: db, q: db}
}

const (
	accountColumns = `user_id, username, display_name, email, active_directory_guid, password, salt, account_type, ` +
		`is_active, two_factor_enabled, two_factor_token, lockout_end, lockout_enabled, access_failed_count`

	selectAccount = `SELECT ` + accountColumns + ` FROM users`

	insertAccount = `INSERT INTO users (username, display_name, email, active_directory_guid, password, salt, ` +
		`account_type, is_active, two_factor_enabled, two_factor_token, lockout_end, lockout_enabled, access_failed_count) ` +
		`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING user_id`

	updateAccount = `UPDATE users SET username = $1, display_name = $2, email = $3, active_directory_guid = $4, ` +
		`password = $5, salt = $6, account_type = $7, is_active = $8, two_factor_enabled = $9, two_factor_token = $10, ` +
		`lockout_end = $11, lockout_enabled = $12, access_failed_count = $13 WHERE user_id = $14`

	selectAssignments = `SELECT role_id, is_active FROM user_roles WHERE user_id = $1 ORDER BY role_id`
	deleteAssignments = `DELETE FROM user_roles WHERE user_id = $1`
	insertAssignment  = `INSERT INTO user_roles (user_id, role_id, is_active) VALUES ($1, $2, $3)`

	selectRoleMatrix = `SELECT r.role_id, COALESCE(ur.is_active, FALSE) FROM roles r ` +
		`LEFT JOIN user_roles ur ON ur.role_id = r.role_id AND ur.user_id = $1 ORDER BY r.role_id`

	uniqueViolation = pq.ErrorCode("23505")
)

// accountParams is the single mapping from an account to the positional parameters of
// insertAccount and updateAccount.
func accountParams(account *model.Account) []any {
	var guid uuid.NullUUID

	if account.DirectoryGUID != nil {
		guid = uuid.NullUUID{UUID: *account.DirectoryGUID, Valid: true}
	}

	var lockoutEnd sql.NullTime

	if account.LockoutEnd != nil {
		lockoutEnd = sql.NullTime{Time: *account.LockoutEnd, Valid: true}
	}

	return []any{
		account.Username,
		account.DisplayName,
		account.Email,
		guid,
		account.PasswordHash,
		account.Salt,
		int16(account.Kind),
		account.Active,
		account.TwoFactorEnabled,
		sql.NullString{String: account.TwoFactorSecret, Valid: account.TwoFactorSecret != ""},
		lockoutEnd,
		account.LockoutEnabled,
		account.AccessFailedCount,
	}
}

func (s *SQLAccountStore) InTx(ctx context.Context, fn func(AccountStore) error) error {
	if s.tx {
		return fn(s)
	}

	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&SQLAccountStore{db: s.db, q: tx, tx: true})
	})
}

func (s *SQLAccountStore) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	return s.getOne(ctx, selectAccount+` WHERE user_id = $1`, id)
}

func (s *SQLAccountStore) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.getOne(ctx, selectAccount+` WHERE username = $1`, username)
}

func (s *SQLAccountStore) GetByDirectoryGUID(ctx context.Context, guid uuid.UUID) (*model.Account, error) {
	return s.getOne(ctx, selectAccount+` WHERE active_directory_guid = $1`, guid)
}

func (s *SQLAccountStore) getOne(ctx context.Context, query string, arg any) (*model.Account, error) {
	account, err := scanAccount(s.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrRecordNotFound
		}

		return nil, fmt.Errorf("query account: %w", err)
	}

	if account.Roles, err = s.assignments(ctx, account.ID); err != nil {
		return nil, err
	}

	return account, nil
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	var (
		account    model.Account
		guid       uuid.NullUUID
		kind       int64
		token      sql.NullString
		lockoutEnd sql.NullTime
	)

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.DisplayName,
		&account.Email,
		&guid,
		&account.PasswordHash,
		&account.Salt,
		&kind,
		&account.Active,
		&account.TwoFactorEnabled,
		&token,
		&lockoutEnd,
		&account.LockoutEnabled,
		&account.AccessFailedCount,
	)
	if err != nil {
		return nil, err
	}

	account.Kind = definitions.AccountKind(kind)
	account.TwoFactorSecret = token.String

	if guid.Valid {
		account.DirectoryGUID = &guid.UUID
	}

	if lockoutEnd.Valid {
		account.LockoutEnd = &lockoutEnd.Time
	}

	return &account, nil
}

func (s *SQLAccountStore) assignments(ctx context.Context, id int64) ([]model.RoleAssignment, error) {
	rows, err := s.q.QueryContext(ctx, selectAssignments, id)
	if err != nil {
		return nil, fmt.Errorf("query role assignments: %w", err)
	}

	defer rows.Close()

	result := []model.RoleAssignment{}

	for rows.Next() {
		assignment := model.RoleAssignment{AccountID: id}

		if err = rows.Scan(&assignment.RoleID, &assignment.Active); err != nil {
			return nil, fmt.Errorf("scan role assignment: %w", err)
		}

		result = append(result, assignment)
	}

	return result, rows.Err()
}

func (s *SQLAccountStore) Create(ctx context.Context, account *model.Account) error {
	return s.InTx(ctx, func(store AccountStore) error {
		tx := store.(*SQLAccountStore)

		if err := tx.q.QueryRowContext(ctx, insertAccount, accountParams(account)...).Scan(&account.ID); err != nil {
			return translateWriteError(err)
		}

		return tx.insertAssignments(ctx, account)
	})
}

func (s *SQLAccountStore) Update(ctx context.Context, account *model.Account) error {
	return s.InTx(ctx, func(store AccountStore) error {
		tx := store.(*SQLAccountStore)

		params := append(accountParams(account), account.ID)

		result, err := tx.q.ExecContext(ctx, updateAccount, params...)
		if err != nil {
			return translateWriteError(err)
		}

		if err = expectOneRow(result); err != nil {
			return err
		}

		if _, err = tx.q.ExecContext(ctx, deleteAssignments, account.ID); err != nil {
			return fmt.Errorf("delete role assignments: %w", err)
		}

		return tx.insertAssignments(ctx, account)
	})
}

func (s *SQLAccountStore) insertAssignments(ctx context.Context, account *model.Account) error {
	for index := range account.Roles {
		account.Roles[index].AccountID = account.ID

		assignment := account.Roles[index]

		if _, err := s.q.ExecContext(ctx, insertAssignment, account.ID, assignment.RoleID, assignment.Active); err != nil {
			return fmt.Errorf("insert role assignment: %w", err)
		}
	}

	return nil
}

func (s *SQLAccountStore) SetTwoFactorFields(ctx context.Context, account *model.Account) error {
	token := sql.NullString{String: account.TwoFactorSecret, Valid: account.TwoFactorSecret != ""}

	return s.execOne(ctx, `UPDATE users SET two_factor_enabled = $1, two_factor_token = $2 WHERE user_id = $3`,
		account.TwoFactorEnabled, token, account.ID)
}

func (s *SQLAccountStore) SetPassword(ctx context.Context, account *model.Account) error {
	return s.execOne(ctx, `UPDATE users SET password = $1, salt = $2 WHERE user_id = $3`,
		account.PasswordHash, account.Salt, account.ID)
}

func (s *SQLAccountStore) SetActive(ctx context.Context, id int64, active bool) error {
	return s.execOne(ctx, `UPDATE users SET is_active = $1 WHERE user_id = $2`, active, id)
}

func (s *SQLAccountStore) RoleMatrix(ctx context.Context, id int64) ([]model.RoleAssignment, error) {
	rows, err := s.q.QueryContext(ctx, selectRoleMatrix, id)
	if err != nil {
		return nil, fmt.Errorf("query role matrix: %w", err)
	}

	defer rows.Close()

	result := []model.RoleAssignment{}

	for rows.Next() {
		assignment := model.RoleAssignment{AccountID: id}

		if err = rows.Scan(&assignment.RoleID, &assignment.Active); err != nil {
			return nil, fmt.Errorf("scan role matrix: %w", err)
		}

		result = append(result, assignment)
	}

	return result, rows.Err()
}

func (s *SQLAccountStore) execOne(ctx context.Context, query string, args ...any) error {
	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return translateWriteError(err)
	}

	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return errors.ErrRecordNotFound
	}

	return nil
}

func translateWriteError(err error) error {
	var pqErr *pq.Error

	if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.ErrUsernameTaken
	}

	return fmt.Errorf("write account: %w", err)
}
