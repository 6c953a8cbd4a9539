package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the billing state of a subscription.
type SubscriptionStatus string

// Possible subscription status values
const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription records a user's entitlement tier. The core reads it
// only to decide between free and pro quota limits; billing state
// changes happen outside this system.
type Subscription struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Status    SubscriptionStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsActive reports whether the subscription grants pro entitlements at
// the given instant.
func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.ExpiresAt.After(now)
}
