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

var _ model.AccountStore = (*AccountRepository)(nil)

type AccountRepository struct {
	db *Connection
}

func NewAccountRepository(db *Connection) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

const accountColumns = `id, user_id, email, encrypted_access_token, encrypted_refresh_token, token_expires_at, created_at, updated_at`

// Upsert inserts a connected account or, when the (user_id, email) pair
// already exists, replaces its token material in place. The unique constraint
// is the only consistency guard; there is no read-then-write.
func (r *AccountRepository) Upsert(ctx context.Context, account model.ConnectedAccount) (model.ConnectedAccount, error) {
	query := `
		INSERT INTO connected_accounts (id, user_id, email, encrypted_access_token, encrypted_refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, email) DO UPDATE SET
			encrypted_access_token = EXCLUDED.encrypted_access_token,
			encrypted_refresh_token = EXCLUDED.encrypted_refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
		RETURNING ` + accountColumns

	var saved model.ConnectedAccount
	err := r.db.QueryRow(ctx, query,
		account.ID, account.UserID, account.Email,
		account.EncryptedAccessToken, account.EncryptedRefreshToken, account.TokenExpiresAt,
	).Scan(
		&saved.ID, &saved.UserID, &saved.Email,
		&saved.EncryptedAccessToken, &saved.EncryptedRefreshToken, &saved.TokenExpiresAt,
		&saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.ConnectedAccount{}, fmt.Errorf("failed to upsert connected account: %w", err)
	}

	return saved, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (model.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE id = $1`

	var account model.ConnectedAccount
	err := r.db.QueryRow(ctx, query, id).Scan(
		&account.ID, &account.UserID, &account.Email,
		&account.EncryptedAccessToken, &account.EncryptedRefreshToken, &account.TokenExpiresAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ConnectedAccount{}, model.ErrNotFound
		}
		return model.ConnectedAccount{}, fmt.Errorf("failed to get connected account by id: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]model.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connected accounts by user id: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// GetExpiringBefore returns the user's accounts whose access token expires
// before deadline, including accounts with no recorded expiry.
func (r *AccountRepository) GetExpiringBefore(ctx context.Context, userID uuid.UUID, deadline time.Time) ([]model.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + `
			  FROM connected_accounts
			  WHERE user_id = $1 AND (token_expires_at IS NULL OR token_expires_at < $2)
			  ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to get expiring connected accounts: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

func (r *AccountRepository) UpdateAccessToken(ctx context.Context, id uuid.UUID, encryptedAccessToken string, expiresAt *time.Time) error {
	query := `UPDATE connected_accounts
			  SET encrypted_access_token = $2, token_expires_at = $3, updated_at = NOW()
			  WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, encryptedAccessToken, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// Delete removes an account only when ownerID owns it; a non-owner gets
// ErrNotFound, the same as an absent record.
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	query := `DELETE FROM connected_accounts WHERE id = $1 AND user_id = $2`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete connected account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func scanAccounts(rows pgx.Rows) ([]model.ConnectedAccount, error) {
	accounts := make([]model.ConnectedAccount, 0)
	for rows.Next() {
		var account model.ConnectedAccount
		if err := rows.Scan(
			&account.ID, &account.UserID, &account.Email,
			&account.EncryptedAccessToken, &account.EncryptedRefreshToken, &account.TokenExpiresAt,
			&account.CreatedAt, &account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan connected account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read connected accounts: %w", err)
	}

	return accounts, nil
}
