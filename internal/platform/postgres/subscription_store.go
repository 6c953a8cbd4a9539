package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/store"
)

// PostgresSubscriptionStore implements store.SubscriptionStore on
// PostgreSQL. Rows are written by the billing system; this side only
// reads.
type PostgresSubscriptionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubscriptionStore creates a subscription store.
func NewPostgresSubscriptionStore(db store.DBTX, logger *slog.Logger) *PostgresSubscriptionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSubscriptionStore{
		db:     db,
		logger: logger.With(slog.String("component", "subscription_store")),
	}
}

var _ store.SubscriptionStore = (*PostgresSubscriptionStore)(nil)

// GetActiveSubscription implements store.SubscriptionStore.
func (s *PostgresSubscriptionStore) GetActiveSubscription(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.Subscription, error) {
	query := `
		SELECT id, user_id, status, expires_at, created_at
		FROM subscriptions
		WHERE user_id = $1 AND status = $2 AND expires_at > $3
		ORDER BY expires_at DESC
		LIMIT 1
	`
	var sub domain.Subscription
	err := s.db.QueryRowContext(ctx, query,
		userID, domain.SubscriptionStatusActive, time.Now().UTC()).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Status,
		&sub.ExpiresAt,
		&sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubscriptionNotFound
		}
		return nil, MapError(err)
	}
	return &sub, nil
}
