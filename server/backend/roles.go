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

	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/model"
)

// RoleStore persists roles.
type RoleStore interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	GetRole(ctx context.Context, id int64) (*model.Role, error)
	CreateRole(ctx context.Context, role *model.Role) error
	UpdateRole(ctx context.Context, role *model.Role) error

	// DeleteRole removes the role together with all assignments of it.
	DeleteRole(ctx context.Context, id int64) error
}

type SQLRoleStore struct {
	db *sql.DB
}

var _ RoleStore = (*SQLRoleStore)(nil)

func NewSQLRoleStore(db *sql.DB) *SQLRoleStore {
	return &SQLRoleStore{db: db}
}

const selectRole = `SELECT role_id, name, normalized_name, active_directory_group_cn FROM roles`

func (s *SQLRoleStore) ListRoles(ctx context.Context) ([]model.Role, error) {
	rows, err := s.db.QueryContext(ctx, selectRole+` ORDER BY role_id`)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}

	defer rows.Close()

	roles := []model.Role{}

	for rows.Next() {
		var role model.Role

		if err = rows.Scan(&role.ID, &role.Name, &role.NormalizedName, &role.DirectoryGroup); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}

		roles = append(roles, role)
	}

	return roles, rows.Err()
}

func (s *SQLRoleStore) GetRole(ctx context.Context, id int64) (*model.Role, error) {
	var role model.Role

	err := s.db.QueryRowContext(ctx, selectRole+` WHERE role_id = $1`, id).
		Scan(&role.ID, &role.Name, &role.NormalizedName, &role.DirectoryGroup)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrRoleNotFound
		}

		return nil, fmt.Errorf("query role: %w", err)
	}

	return &role, nil
}

func (s *SQLRoleStore) CreateRole(ctx context.Context, role *model.Role) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO roles (name, normalized_name, active_directory_group_cn) VALUES ($1, $2, $3) RETURNING role_id`,
		role.Name, role.NormalizedName, role.DirectoryGroup,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("insert role: %w", err)
	}

	return nil
}

func (s *SQLRoleStore) UpdateRole(ctx context.Context, role *model.Role) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE roles SET name = $1, normalized_name = $2, active_directory_group_cn = $3 WHERE role_id = $4`,
		role.Name, role.NormalizedName, role.DirectoryGroup, role.ID,
	)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	if err = expectOneRow(result); err != nil {
		return errors.ErrRoleNotFound
	}

	return nil
}

func (s *SQLRoleStore) DeleteRole(ctx context.Context, id int64) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("delete role assignments: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE role_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete role: %w", err)
		}

		if err = expectOneRow(result); err != nil {
			return errors.ErrRoleNotFound
		}

		return nil
	})
}
