package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtroode/zeitnachricht/internal/model"
)

// DefaultProfile is the profile used when none is configured.
const DefaultProfile = "default"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ model.StateStore = (*StateRepository)(nil)

// StateRepository stores client state rows of one profile in client_state.
type StateRepository struct {
	db      querier
	profile string
}

func NewStateRepository(db querier, profile string) *StateRepository {
	if profile == "" {
		profile = DefaultProfile
	}
	return &StateRepository{
		db:      db,
		profile: profile,
	}
}

func (r *StateRepository) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM client_state WHERE profile = $1 AND key = $2`

	var value string
	err := r.db.QueryRowContext(ctx, query, r.profile, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("failed to get state: %w", err)
	}

	return value, nil
}

func (r *StateRepository) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO client_state (profile, key, value, updated_at)
			  VALUES ($1, $2, $3, now())
			  ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, r.profile, key, value); err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}

	return nil
}

func (r *StateRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM client_state WHERE profile = $1 AND key = $2`

	if _, err := r.db.ExecContext(ctx, query, r.profile, key); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	return nil
}
