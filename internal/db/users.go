package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/optifit/backend/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, location,
	preferences, external_id, is_active, created_at, updated_at`

func (db *Postgres) EnsureUserSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			phone VARCHAR(50) NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			preferences JSONB NOT NULL DEFAULT '{}'::jsonb,
			external_id TEXT UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (LOWER(email))`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure users schema: %w", err)
		}
	}
	return nil
}

// CreateUser inserts a new identity. A duplicate email or external id
// surfaces as ErrConflict; the unique index decides concurrent races.
func (db *Postgres) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	return insertUser(ctx, db.Pool, in)
}

// CreateUserWithActivity inserts the identity and its first activity entry in
// one transaction. Neither row is kept when either insert fails.
func (db *Postgres) CreateUserWithActivity(ctx context.Context, in model.NewUser, eventType string, data map[string]any) (*model.User, error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := insertUser(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := insertActivity(ctx, tx, user.ID, eventType, data); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func insertUser(ctx context.Context, q querier, in model.NewUser) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, location, external_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + userColumns
	row := q.QueryRow(ctx, query,
		uuid.NewString(),
		in.Email,
		in.PasswordHash,
		in.FirstName,
		in.LastName,
		in.Phone,
		in.Location,
		in.ExternalID,
	)
	return scanUser(row)
}

func (db *Postgres) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(db.Pool.QueryRow(ctx, query, id))
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	return scanUser(db.Pool.QueryRow(ctx, query, externalID))
}

func (db *Postgres) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			phone = COALESCE($4, phone),
			location = COALESCE($5, location),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query, id, upd.FirstName, upd.LastName, upd.Phone, upd.Location))
}

func (db *Postgres) LinkExternalID(ctx context.Context, id, externalID string) (*model.User, error) {
	query := `
		UPDATE users
		SET external_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query, id, externalID))
}

func (db *Postgres) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return translate(err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) SetUserActive(ctx context.Context, id string, active bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	result, err := db.Pool.Exec(ctx, `
		UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return translate(err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePreferences shallow-merges prefs into the stored preferences.
func (db *Postgres) UpdatePreferences(ctx context.Context, id string, prefs map[string]any) (map[string]any, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	if prefs == nil {
		prefs = map[string]any{}
	}
	var merged map[string]any
	err := db.Pool.QueryRow(ctx, `
		UPDATE users
		SET preferences = preferences || $2::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING preferences
	`, id, prefs).Scan(&merged)
	if err != nil {
		return nil, translate(err)
	}
	return merged, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Location,
		&user.Preferences,
		&user.ExternalID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
