package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sendlens/sendlens-server/internal/model"
)

var _ model.GrantStore = (*GrantRepository)(nil)

type GrantRepository struct {
	db *Connection
}

func NewGrantRepository(db *Connection) *GrantRepository {
	return &GrantRepository{db: db}
}

// Create inserts a grant; on conflict with the (account_id, viewer_id)
// constraint the existing row is returned, so re-adding a viewer is
// idempotent and never duplicates.
func (r *GrantRepository) Create(ctx context.Context, grant model.PermissionGrant) (model.PermissionGrant, error) {
	query := `
		WITH ins AS (
			INSERT INTO permission_grants (id, account_id, viewer_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (account_id, viewer_id) DO NOTHING
			RETURNING id, account_id, viewer_id, created_at
		)
		SELECT id, account_id, viewer_id, created_at FROM ins
		UNION ALL
		SELECT g.id, g.account_id, g.viewer_id, g.created_at
		FROM permission_grants g
		WHERE NOT EXISTS (SELECT 1 FROM ins) AND g.account_id = $2 AND g.viewer_id = $3
		LIMIT 1`

	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}

	var saved model.PermissionGrant
	err := r.db.QueryRow(ctx, query, grant.ID, grant.AccountID, grant.ViewerID).Scan(
		&saved.ID, &saved.AccountID, &saved.ViewerID, &saved.CreatedAt,
	)
	if err != nil {
		return model.PermissionGrant{}, fmt.Errorf("failed to create permission grant: %w", err)
	}

	return saved, nil
}

func (r *GrantRepository) Delete(ctx context.Context, accountID, viewerID uuid.UUID) error {
	query := `DELETE FROM permission_grants WHERE account_id = $1 AND viewer_id = $2`

	if _, err := r.db.Exec(ctx, query, accountID, viewerID); err != nil {
		return fmt.Errorf("failed to delete permission grant: %w", err)
	}

	return nil
}

func (r *GrantRepository) Exists(ctx context.Context, accountID, viewerID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM permission_grants WHERE account_id = $1 AND viewer_id = $2`

	var one int
	err := r.db.QueryRow(ctx, query, accountID, viewerID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check permission grant: %w", err)
	}

	return true, nil
}

func (r *GrantRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]model.PermissionGrant, error) {
	query := `SELECT id, account_id, viewer_id, created_at
			  FROM permission_grants WHERE account_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get permission grants by account id: %w", err)
	}
	defer rows.Close()

	grants := make([]model.PermissionGrant, 0)
	for rows.Next() {
		var grant model.PermissionGrant
		if err := rows.Scan(&grant.ID, &grant.AccountID, &grant.ViewerID, &grant.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission grant: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read permission grants: %w", err)
	}

	return grants, nil
}
