// Package quota tracks the persisted daily call budget for each provider.
//
// The counter lives on the provider config row, not in memory, so the budget
// survives process restarts. All arithmetic is recomputed from the persisted
// fields against the current calendar date on every call.
package quota

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/iXanadu/abouthr/internal/model"
)

// UsageStore persists provider usage counters.
type UsageStore interface {
	UpdateProviderUsage(ctx context.Context, provider model.ProviderName, requestsToday int, resetDate string) error
}

// Remaining returns the calls left today. A stored reset date other than
// today means the counter is stale and the full quota is available.
func Remaining(cfg *model.ProviderConfig, now time.Time) int {
	if cfg == nil {
		return 0
	}
	if cfg.QuotaResetDate != model.DateString(now) {
		return cfg.DailyQuota
	}
	remaining := cfg.DailyQuota - cfg.RequestsToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Enabled reports whether the provider may make a network call right now.
func Enabled(cfg *model.ProviderConfig, now time.Time) bool {
	return cfg != nil && cfg.Enabled && Remaining(cfg, now) > 0
}

// Tracker records requests against a provider's daily budget. Record must be
// called exactly once per adapter network call, success or failure; a failed
// call still cost a real API request.
type Tracker struct {
	store UsageStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewTracker creates a Tracker backed by the given store. A nil clock means
// time.Now.
func NewTracker(store UsageStore, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, now: now}
}

// Record increments the day's counter, rolling the window first if the
// stored date is not today, and persists the result. The mutex serializes
// concurrent engine invocations against the same process so the counter is
// never double-spent.
func (t *Tracker) Record(ctx context.Context, cfg *model.ProviderConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := model.DateString(t.now())
	if cfg.QuotaResetDate != today {
		cfg.RequestsToday = 0
		cfg.QuotaResetDate = today
	}
	cfg.RequestsToday++

	if err := t.store.UpdateProviderUsage(ctx, cfg.Provider, cfg.RequestsToday, cfg.QuotaResetDate); err != nil {
		return eris.Wrapf(err, "quota: record request for %s", cfg.Provider)
	}
	return nil
}
