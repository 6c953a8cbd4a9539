package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/store"
)

// usageKey identifies one quota counter.
type usageKey struct {
	userID   uuid.UUID
	quotaKey string
	period   string
}

// QuotaStore is a mutex-guarded in-memory quota counter store. The
// mutex spans the whole check-and-increment, so concurrent
// reservations racing at the limit cannot both succeed past it.
type QuotaStore struct {
	mu   sync.Mutex
	used map[usageKey]int
}

// NewQuotaStore creates an empty in-memory quota store.
func NewQuotaStore() *QuotaStore {
	return &QuotaStore{
		used: make(map[usageKey]int),
	}
}

// ReserveQuota implements store.QuotaStore.
func (s *QuotaStore) ReserveQuota(
	ctx context.Context,
	userID uuid.UUID,
	quotaKey, period string,
	amount, limit int,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{userID: userID, quotaKey: quotaKey, period: period}
	if s.used[key]+amount > limit {
		return false, nil
	}
	s.used[key] += amount
	return true, nil
}

// ReleaseQuota implements store.QuotaStore, clamping at zero.
func (s *QuotaStore) ReleaseQuota(
	ctx context.Context,
	userID uuid.UUID,
	quotaKey, period string,
	amount int,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{userID: userID, quotaKey: quotaKey, period: period}
	s.used[key] -= amount
	if s.used[key] < 0 {
		s.used[key] = 0
	}
	return nil
}

// GetQuotaUsed implements store.QuotaStore.
func (s *QuotaStore) GetQuotaUsed(
	ctx context.Context,
	userID uuid.UUID,
	quotaKey, period string,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.used[usageKey{userID: userID, quotaKey: quotaKey, period: period}], nil
}

// SubscriptionStore is an in-memory subscription lookup, mainly useful
// for demos and tests; every user defaults to the free tier.
type SubscriptionStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*domain.Subscription
}

// NewSubscriptionStore creates an empty in-memory subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		subs: make(map[uuid.UUID]*domain.Subscription),
	}
}

// PutSubscription records a subscription for a user.
func (s *SubscriptionStore) PutSubscription(sub *domain.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.UserID] = sub
}

// GetActiveSubscription implements store.SubscriptionStore.
func (s *SubscriptionStore) GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[userID]
	if !ok || !sub.IsActive(time.Now()) {
		return nil, store.ErrSubscriptionNotFound
	}
	subCopy := *sub
	return &subCopy, nil
}
