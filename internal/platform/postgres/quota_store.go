package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/store"
)

// PostgresQuotaStore implements store.QuotaStore on PostgreSQL.
type PostgresQuotaStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuotaStore creates a quota store over the given connection
// or transaction.
func NewPostgresQuotaStore(db store.DBTX, logger *slog.Logger) *PostgresQuotaStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresQuotaStore{
		db:     db,
		logger: logger.With(slog.String("component", "quota_store")),
	}
}

var _ store.QuotaStore = (*PostgresQuotaStore)(nil)

// ReserveQuota implements store.QuotaStore. The check and increment are
// one conditional upsert, so concurrent reservations for the same
// counter serialize on the row and can never carry used past limit.
func (s *PostgresQuotaStore) ReserveQuota(
	ctx context.Context,
	userID uuid.UUID,
	quotaKey string,
	period string,
	amount int,
	limit int,
) (bool, error) {
	query := `
		INSERT INTO quota_usage (user_id, quota_key, period, used, updated_at)
		SELECT $1, $2, $3, $4, $6
		WHERE $4 <= $5
		ON CONFLICT (user_id, quota_key, period)
		DO UPDATE SET used = quota_usage.used + $4, updated_at = $6
		WHERE quota_usage.used + $4 <= $5
	`
	res, err := s.db.ExecContext(ctx, query,
		userID, quotaKey, period, amount, limit, time.Now().UTC())
	if err != nil {
		return false, MapError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}
	return affected == 1, nil
}

// ReleaseQuota implements store.QuotaStore, clamping at zero.
func (s *PostgresQuotaStore) ReleaseQuota(
	ctx context.Context,
	userID uuid.UUID,
	quotaKey string,
	period string,
	amount int,
) error {
	query := `
		UPDATE quota_usage
		SET used = GREATEST(used - $4, 0), updated_at = $5
		WHERE user_id = $1 AND quota_key = $2 AND period = $3
	`
	_, err := s.db.ExecContext(ctx, query,
		userID, quotaKey, period, amount, time.Now().UTC())
	return MapError(err)
}

// GetQuotaUsed implements store.QuotaStore. A missing counter reads
// as zero usage.
func (s *PostgresQuotaStore) GetQuotaUsed(
	ctx context.Context,
	userID uuid.UUID,
	quotaKey string,
	period string,
) (int, error) {
	query := `
		SELECT used FROM quota_usage
		WHERE user_id = $1 AND quota_key = $2 AND period = $3
	`
	var used int
	err := s.db.QueryRowContext(ctx, query, userID, quotaKey, period).Scan(&used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, MapError(err)
	}
	return used, nil
}
