// Package quota implements the per-user consumption ledger: period key
// derivation, entitlement-tier limits, and the reserve/release
// operations the dispatcher and worker use around task execution.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/store"
)

// Quota keys. daily and monthly are charged on every submission;
// the modality keys are charged additionally for image and video
// output.
const (
	KeyDaily    = "daily"
	KeyMonthly  = "monthly"
	KeyImageGen = "image_gen"
	KeyVideoGen = "video_gen"
)

// ErrQuotaExceeded is returned when a reservation would push usage past
// the period's limit.
var ErrQuotaExceeded = fmt.Errorf("quota exceeded")

// PeriodFor derives the calendar bucket for a quota key at the given
// instant: a YYYY-MM month for the monthly key, a YYYY-MM-DD day for
// everything else. Periods roll over automatically with wall-clock
// time; there is no explicit reset.
func PeriodFor(quotaKey string, now time.Time) string {
	if quotaKey == KeyMonthly {
		return now.UTC().Format("2006-01")
	}
	return now.UTC().Format("2006-01-02")
}

// KeysFor returns the quota keys charged for producing the given
// output modality.
func KeysFor(modality domain.Modality) []string {
	keys := []string{KeyDaily, KeyMonthly}
	switch modality {
	case domain.ModalityImage:
		keys = append(keys, KeyImageGen)
	case domain.ModalityVideo:
		keys = append(keys, KeyVideoGen)
	}
	return keys
}

// Entitlements computes a user's quota limits from their current tier.
// It is a pure function of the tier, not persisted state.
type Entitlements interface {
	LimitsFor(ctx context.Context, userID uuid.UUID) (map[string]int, error)
}

// Pro tier limits.
var proLimits = map[string]int{
	KeyDaily:    100,
	KeyMonthly:  1000,
	KeyImageGen: 50,
	KeyVideoGen: 20,
}

// TierEntitlements derives limits from the user's subscription state:
// an active subscription grants the pro limits, everything else the
// free limits.
type TierEntitlements struct {
	subscriptions  store.SubscriptionStore
	freeDailyLimit int
	now            func() time.Time
}

// NewTierEntitlements creates the entitlement calculator. The free
// daily limit is configurable; the rest of the tables are fixed.
func NewTierEntitlements(subscriptions store.SubscriptionStore, freeDailyLimit int) *TierEntitlements {
	return &TierEntitlements{
		subscriptions:  subscriptions,
		freeDailyLimit: freeDailyLimit,
		now:            time.Now,
	}
}

// LimitsFor implements Entitlements.
func (e *TierEntitlements) LimitsFor(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	sub, err := e.subscriptions.GetActiveSubscription(ctx, userID)
	if err != nil && !store.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}

	if sub != nil && sub.IsActive(e.now()) {
		return proLimits, nil
	}

	return map[string]int{
		KeyDaily:    e.freeDailyLimit,
		KeyMonthly:  50,
		KeyImageGen: 3,
		KeyVideoGen: 1,
	}, nil
}

// IsPro reports whether the user currently holds an active
// subscription.
func (e *TierEntitlements) IsPro(ctx context.Context, userID uuid.UUID) (bool, error) {
	sub, err := e.subscriptions.GetActiveSubscription(ctx, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up subscription: %w", err)
	}
	return sub.IsActive(e.now()), nil
}

// QuotaInfo is the per-key usage view exposed to clients.
type QuotaInfo struct {
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Total     int       `json:"total"`
	ResetAt   time.Time `json:"reset_at"`
}

// EntitlementState is a user's full entitlement snapshot: feature
// switches plus usage per quota key.
type EntitlementState struct {
	Features map[string]bool      `json:"features"`
	Quotas   map[string]QuotaInfo `json:"quotas"`
}

// Ledger enforces per-user, per-key, per-period usage caps on top of a
// QuotaStore. The store is responsible for atomicity of individual
// reservations; the ledger derives periods and limits.
type Ledger struct {
	store        store.QuotaStore
	entitlements Entitlements
	logger       *slog.Logger
	now          func() time.Time
}

// NewLedger creates a quota ledger.
func NewLedger(quotaStore store.QuotaStore, entitlements Entitlements, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:        quotaStore,
		entitlements: entitlements,
		logger:       logger,
		now:          time.Now,
	}
}

// Reserve atomically charges amount against the current period of the
// given key. Returns false when the reservation would exceed the
// user's limit; the counter is left untouched in that case.
func (l *Ledger) Reserve(ctx context.Context, userID uuid.UUID, quotaKey string, amount int) (bool, error) {
	limits, err := l.entitlements.LimitsFor(ctx, userID)
	if err != nil {
		return false, err
	}

	limit, ok := limits[quotaKey]
	if !ok {
		return false, nil
	}

	period := PeriodFor(quotaKey, l.now())
	return l.store.ReserveQuota(ctx, userID, quotaKey, period, amount, limit)
}

// ReserveAll charges amount against every key in order. On the first
// key that does not fit, previously charged keys are released and the
// call reports false.
func (l *Ledger) ReserveAll(ctx context.Context, userID uuid.UUID, quotaKeys []string, amount int) (bool, error) {
	for i, key := range quotaKeys {
		ok, err := l.Reserve(ctx, userID, key, amount)
		if err == nil && ok {
			continue
		}
		l.ReleaseAll(ctx, userID, quotaKeys[:i], amount)
		return false, err
	}
	return true, nil
}

// Release undoes a prior reservation for the current period. It is
// tolerant of over-release: the store clamps the counter at zero.
func (l *Ledger) Release(ctx context.Context, userID uuid.UUID, quotaKey string, amount int) {
	period := PeriodFor(quotaKey, l.now())
	if err := l.store.ReleaseQuota(ctx, userID, quotaKey, period, amount); err != nil {
		// Release is best-effort correction; a failure leaves the user
		// slightly over-charged until the period rolls over.
		l.logger.Error("failed to release quota",
			"user_id", userID,
			"quota_key", quotaKey,
			"period", period,
			"error", err)
	}
}

// ReleaseAll releases amount on every key.
func (l *Ledger) ReleaseAll(ctx context.Context, userID uuid.UUID, quotaKeys []string, amount int) {
	for _, key := range quotaKeys {
		l.Release(ctx, userID, key, amount)
	}
}

// State assembles the user's entitlement snapshot: the feature
// switches for their tier and usage across all quota keys.
func (l *Ledger) State(ctx context.Context, userID uuid.UUID) (*EntitlementState, error) {
	limits, err := l.entitlements.LimitsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	isPro := false
	if tier, ok := l.entitlements.(*TierEntitlements); ok {
		isPro, err = tier.IsPro(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	now := l.now()
	quotas := make(map[string]QuotaInfo, len(limits))
	for key, limit := range limits {
		period := PeriodFor(key, now)
		used, err := l.store.GetQuotaUsed(ctx, userID, key, period)
		if err != nil {
			return nil, fmt.Errorf("failed to read quota usage for %s: %w", key, err)
		}

		remaining := limit - used
		if remaining < 0 {
			remaining = 0
		}
		quotas[key] = QuotaInfo{
			Used:      used,
			Remaining: remaining,
			Total:     limit,
			ResetAt:   resetAt(key, now),
		}
	}

	return &EntitlementState{
		Features: map[string]bool{
			"removeAds":     isPro,
			"vipContent":    isPro,
			"unlockImage":   isPro,
			"unlockVideo":   isPro,
			"priorityQueue": isPro,
		},
		Quotas: quotas,
	}, nil
}

// resetAt returns the instant the key's current period rolls over.
func resetAt(quotaKey string, now time.Time) time.Time {
	now = now.UTC()
	if quotaKey == KeyMonthly {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
