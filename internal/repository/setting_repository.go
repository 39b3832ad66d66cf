package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cryptofolio/backend/internal/apperrors"
)

// SettingRepository provides data access methods for the system_setting
// key/value table.
type SettingRepository struct {
	db *sql.DB
}

// NewSettingRepository creates a new SettingRepository with the provided database connection.
func NewSettingRepository(db *sql.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the stored value for a key.
func (s *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM system_setting WHERE "key" = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", apperrors.ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query system setting %q: %w", key, err)
	}
	return value, nil
}

// Set stores or replaces the value for a key.
func (s *SettingRepository) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_setting (id, "key", value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT("key") DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, uuid.New().String(), key, value, FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to store system setting %q: %w", key, err)
	}
	return nil
}
