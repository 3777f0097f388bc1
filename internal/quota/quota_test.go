package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iXanadu/abouthr/internal/model"
)

type recordingStore struct {
	mu       sync.Mutex
	requests []int
	dates    []string
	err      error
}

func (s *recordingStore) UpdateProviderUsage(_ context.Context, _ model.ProviderName, requestsToday int, resetDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.requests = append(s.requests, requestsToday)
	s.dates = append(s.dates, resetDate)
	return nil
}

var day = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func configOn(t time.Time, requestsToday int) *model.ProviderConfig {
	cfg := model.DefaultProviderConfig(model.ProviderGoogle, t)
	cfg.Enabled = true
	cfg.RequestsToday = requestsToday
	return &cfg
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		name string
		cfg  *model.ProviderConfig
		now  time.Time
		want int
	}{
		{"nil config", nil, day, 0},
		{"fresh day", configOn(day, 0), day, model.DefaultDailyQuota},
		{"partially spent", configOn(day, 9900), day, 100},
		{"fully spent", configOn(day, model.DefaultDailyQuota), day, 0},
		{"overspent clamps to zero", configOn(day, model.DefaultDailyQuota+5), day, 0},
		{"stale date means full quota", configOn(day, model.DefaultDailyQuota), day.Add(24 * time.Hour), model.DefaultDailyQuota},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remaining(tt.cfg, tt.now))
		})
	}
}

func TestEnabled(t *testing.T) {
	cfg := configOn(day, 0)
	assert.True(t, Enabled(cfg, day))

	cfg.Enabled = false
	assert.False(t, Enabled(cfg, day))

	cfg.Enabled = true
	cfg.RequestsToday = cfg.DailyQuota
	assert.False(t, Enabled(cfg, day))

	// Midnight crossing makes the exhausted provider usable again.
	assert.True(t, Enabled(cfg, day.Add(24*time.Hour)))

	assert.False(t, Enabled(nil, day))
}

func TestTracker_RecordIncrementsAndPersists(t *testing.T) {
	st := &recordingStore{}
	tr := NewTracker(st, func() time.Time { return day })
	cfg := configOn(day, 5)

	require.NoError(t, tr.Record(context.Background(), cfg))
	require.NoError(t, tr.Record(context.Background(), cfg))

	assert.Equal(t, 7, cfg.RequestsToday)
	assert.Equal(t, []int{6, 7}, st.requests)
	assert.Equal(t, model.DateString(day), st.dates[0])
}

func TestTracker_RecordRollsWindowOnNewDay(t *testing.T) {
	st := &recordingStore{}
	now := day
	tr := NewTracker(st, func() time.Time { return now })
	cfg := configOn(day, 9999)

	require.NoError(t, tr.Record(context.Background(), cfg))
	assert.Equal(t, 10000, cfg.RequestsToday)

	// The next day the counter restarts at one, not at the stale value.
	now = day.Add(24 * time.Hour)
	require.NoError(t, tr.Record(context.Background(), cfg))
	assert.Equal(t, 1, cfg.RequestsToday)
	assert.Equal(t, model.DateString(now), cfg.QuotaResetDate)
}

func TestTracker_RecordPropagatesStoreError(t *testing.T) {
	st := &recordingStore{err: errors.New("db locked")}
	tr := NewTracker(st, func() time.Time { return day })
	cfg := configOn(day, 0)

	err := tr.Record(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google")
}

func TestTracker_ConcurrentRecords(t *testing.T) {
	st := &recordingStore{}
	tr := NewTracker(st, func() time.Time { return day })
	cfg := configOn(day, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tr.Record(context.Background(), cfg)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, cfg.RequestsToday)
	assert.Len(t, st.requests, 50)
}
