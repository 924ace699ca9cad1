package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id                TEXT PRIMARY KEY,
	email             TEXT NOT NULL UNIQUE,
	password_hash     TEXT NOT NULL,
	role              TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
	verification_code TEXT,
	is_verified       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	verified_at       TIMESTAMPTZ
)`

const passwordResetsSchema = `
CREATE TABLE IF NOT EXISTS password_resets (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	token_hash TEXT NOT NULL UNIQUE,
	expires_at TIMESTAMPTZ NOT NULL,
	used_at    TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSchema creates the tables that do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, usersSchema); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, passwordResetsSchema); err != nil {
		return fmt.Errorf("ensure password_resets schema: %w", err)
	}
	return nil
}
