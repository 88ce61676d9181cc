package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sendlens/sendlens-server/internal/model"
)

var _ model.ConnectStateStore = (*ConnectStateRepository)(nil)

type ConnectStateRepository struct {
	db *Connection
}

func NewConnectStateRepository(db *Connection) *ConnectStateRepository {
	return &ConnectStateRepository{db: db}
}

func (r *ConnectStateRepository) Create(ctx context.Context, pending model.PendingConnect) error {
	query := `INSERT INTO pending_connects (state, user_id, expires_at, consumed)
			  VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query,
		pending.State, pending.UserID, pending.ExpiresAt, pending.Consumed,
	)
	if err != nil {
		return fmt.Errorf("failed to create pending connect: %w", err)
	}

	return nil
}

func (r *ConnectStateRepository) GetByState(ctx context.Context, state string) (model.PendingConnect, error) {
	query := `SELECT state, user_id, expires_at, consumed
			  FROM pending_connects WHERE state = $1`

	var pending model.PendingConnect
	err := r.db.QueryRow(ctx, query, state).Scan(
		&pending.State, &pending.UserID, &pending.ExpiresAt, &pending.Consumed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PendingConnect{}, model.ErrNotFound
		}
		return model.PendingConnect{}, fmt.Errorf("failed to get pending connect by state: %w", err)
	}

	return pending, nil
}

// Consume marks the state row used. The NOT consumed guard makes the flip
// atomic: of two concurrent callbacks presenting the same state, exactly one
// update wins and the other gets ErrStateConsumed.
func (r *ConnectStateRepository) Consume(ctx context.Context, state string) error {
	query := `UPDATE pending_connects SET consumed = TRUE WHERE state = $1 AND NOT consumed`

	tag, err := r.db.Exec(ctx, query, state)
	if err != nil {
		return fmt.Errorf("failed to consume pending connect: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrStateConsumed
	}

	return nil
}

// DeleteExpired removes pending rows past their TTL so abandoned
// authorization attempts do not accumulate. Called opportunistically when a
// new attempt starts; failures are the caller's to log and ignore.
func (r *ConnectStateRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM pending_connects WHERE expires_at < NOW()`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to delete expired pending connects: %w", err)
	}

	return nil
}
