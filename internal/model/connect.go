package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PendingConnectDuration is a TTL for pending OAuth connection attempts.
const PendingConnectDuration = time.Minute * 10

// ErrStateConsumed is returned by Consume when the state row was already
// consumed by an earlier callback.
var ErrStateConsumed = errors.New("state token already consumed")

// ConnectStateStore persists short-lived OAuth state tokens. A state row is
// single-use: Consume must atomically flip the consumed flag so concurrent
// callbacks with the same state cannot both pass the replay check.
type ConnectStateStore interface {
	Create(ctx context.Context, pending PendingConnect) error
	GetByState(ctx context.Context, state string) (PendingConnect, error)
	Consume(ctx context.Context, state string) error
	DeleteExpired(ctx context.Context) error
}

// PendingConnect binds one OAuth authorization attempt to the user who
// started it.
type PendingConnect struct {
	State     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	Consumed  bool
}
