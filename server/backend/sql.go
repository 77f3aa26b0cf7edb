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
	"fmt"

	"github.com/croessner/portier/server/config"
	"github.com/lib/pq"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenDatabase opens the PostgreSQL pool described by cfg.
func OpenDatabase(cfg *config.SQLSection) (*sql.DB, error) {
	connector, err := pq.NewConnector(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse sql dsn: %w", err)
	}

	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(cfg.GetMaxOpenConns())
	db.SetMaxIdleConns(cfg.GetMaxIdleConns())
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	active_directory_guid UUID UNIQUE,
	password TEXT NOT NULL DEFAULT '',
	salt TEXT NOT NULL DEFAULT '',
	account_type SMALLINT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	two_factor_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	two_factor_token TEXT,
	lockout_end TIMESTAMPTZ,
	lockout_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	access_failed_count INTEGER NOT NULL DEFAULT 0,
	CHECK ((account_type = 2) = (active_directory_guid IS NOT NULL))
);
CREATE TABLE IF NOT EXISTS roles (
	role_id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	normalized_name TEXT NOT NULL UNIQUE,
	active_directory_group_cn TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS user_roles (
	user_id BIGINT NOT NULL REFERENCES users(user_id),
	role_id BIGINT NOT NULL REFERENCES roles(role_id),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	PRIMARY KEY (user_id, role_id)
)`

// EnsureSchema creates missing tables. It does not migrate existing ones.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	return nil
}

// inTx runs fn inside a transaction on db and commits if fn succeeds.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer tx.Rollback()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
