package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sendlens/sendlens-server/internal/model"
)

var _ model.APIKeyStore = (*APIKeyRepository)(nil)

type APIKeyRepository struct {
	db *Connection
}

func NewAPIKeyRepository(db *Connection) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

const apiKeyColumns = `id, user_id, provider, label, encrypted_key, key_hint, is_default, validation_status, validated_at, created_at, updated_at`

func (r *APIKeyRepository) Create(ctx context.Context, key model.StoredAPIKey) (model.StoredAPIKey, error) {
	query := `INSERT INTO api_keys (id, user_id, provider, label, encrypted_key, key_hint, is_default, validation_status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING ` + apiKeyColumns

	var saved model.StoredAPIKey
	err := r.db.QueryRow(ctx, query,
		key.ID, key.UserID, key.Provider, key.Label,
		key.EncryptedKey, key.KeyHint, key.IsDefault, key.ValidationStatus,
	).Scan(
		&saved.ID, &saved.UserID, &saved.Provider, &saved.Label,
		&saved.EncryptedKey, &saved.KeyHint, &saved.IsDefault,
		&saved.ValidationStatus, &saved.ValidatedAt, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.StoredAPIKey{}, fmt.Errorf("failed to create api key: %w", err)
	}

	return saved, nil
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (model.StoredAPIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	var key model.StoredAPIKey
	err := r.db.QueryRow(ctx, query, id).Scan(
		&key.ID, &key.UserID, &key.Provider, &key.Label,
		&key.EncryptedKey, &key.KeyHint, &key.IsDefault,
		&key.ValidationStatus, &key.ValidatedAt, &key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StoredAPIKey{}, model.ErrNotFound
		}
		return model.StoredAPIKey{}, fmt.Errorf("failed to get api key by id: %w", err)
	}

	return key, nil
}

func (r *APIKeyRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]model.StoredAPIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get api keys by user id: %w", err)
	}
	defer rows.Close()

	keys := make([]model.StoredAPIKey, 0)
	for rows.Next() {
		var key model.StoredAPIKey
		if err := rows.Scan(
			&key.ID, &key.UserID, &key.Provider, &key.Label,
			&key.EncryptedKey, &key.KeyHint, &key.IsDefault,
			&key.ValidationStatus, &key.ValidatedAt, &key.CreatedAt, &key.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read api keys: %w", err)
	}

	return keys, nil
}

// SetDefault marks one key as the default for its provider and clears the
// flag from the user's other keys of the same provider in a single statement.
func (r *APIKeyRepository) SetDefault(ctx context.Context, userID, id uuid.UUID, provider string) error {
	query := `UPDATE api_keys
			  SET is_default = (id = $2), updated_at = NOW()
			  WHERE user_id = $1 AND provider = $3`

	tag, err := r.db.Exec(ctx, query, userID, id, provider)
	if err != nil {
		return fmt.Errorf("failed to set default api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *APIKeyRepository) UpdateValidation(ctx context.Context, id uuid.UUID, status model.ValidationStatus, checkedAt time.Time) error {
	query := `UPDATE api_keys
			  SET validation_status = $2, validated_at = $3, updated_at = NOW()
			  WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status, checkedAt)
	if err != nil {
		return fmt.Errorf("failed to update api key validation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	query := `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
