package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/model"
)

var _ model.AuditStore = (*AuditRepository)(nil)

type AuditRepository struct {
	db *Connection
}

func NewAuditRepository(db *Connection) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry model.AuditEntry) error {
	query := `INSERT INTO audit_log (id, user_id, action, account_email, detail)
			  VALUES ($1, $2, $3, $4, $5)`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.UserID, entry.Action, entry.AccountEmail, entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

func (r *AuditRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]model.AuditEntry, error) {
	query := `SELECT id, user_id, action, account_email, detail, created_at
			  FROM audit_log WHERE user_id = $1
			  ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entries by user id: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var entry model.AuditEntry
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Action,
			&entry.AccountEmail, &entry.Detail, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}

	return entries, nil
}
