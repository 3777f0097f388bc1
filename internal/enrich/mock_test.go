package enrich

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iXanadu/abouthr/internal/model"
	"github.com/iXanadu/abouthr/internal/store"
)

// mockStore is an in-memory store.Store. Writes mutate the slice so tests
// can assert on committed state after a run.
type mockStore struct {
	venues  []model.Venue
	configs map[model.ProviderName]*model.ProviderConfig

	createErr    error
	updateErr    error
	usageUpdates int
}

func newMockStore() *mockStore {
	return &mockStore{configs: map[model.ProviderName]*model.ProviderConfig{}}
}

func (m *mockStore) addConfig(cfg model.ProviderConfig) {
	m.configs[cfg.Provider] = &cfg
}

func (m *mockStore) addVenue(v model.Venue) string {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	m.venues = append(m.venues, v)
	return v.ID
}

func (m *mockStore) venueByID(id string) *model.Venue {
	for i := range m.venues {
		if m.venues[i].ID == id {
			return &m.venues[i]
		}
	}
	return nil
}

func (m *mockStore) CreateVenue(_ context.Context, v *model.Venue) error {
	if m.createErr != nil {
		return m.createErr
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	m.venues = append(m.venues, *v)
	return nil
}

func (m *mockStore) GetVenue(_ context.Context, id string) (*model.Venue, error) {
	if v := m.venueByID(id); v != nil {
		out := *v
		return &out, nil
	}
	return nil, nil
}

func (m *mockStore) ListVenues(_ context.Context, filter store.VenueFilter) ([]model.Venue, error) {
	var out []model.Venue
	for _, v := range m.venues {
		if filter.City != "" && v.City != filter.City {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, v.VenueType) {
			continue
		}
		if filter.DataSource != "" && v.DataSource != filter.DataSource {
			continue
		}
		if filter.EnrichmentStatus != "" && v.EnrichmentStatus != filter.EnrichmentStatus {
			continue
		}
		if filter.Matched != nil && (v.ExternalID != "") != *filter.Matched {
			continue
		}
		if filter.EnrichedBefore != nil {
			if v.LastEnrichedAt == nil || !v.LastEnrichedAt.Before(*filter.EnrichedBefore) {
				continue
			}
		}
		out = append(out, v)
	}
	if filter.OrderByOldestEnriched {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].LastEnrichedAt.Before(*out[j].LastEnrichedAt)
		})
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockStore) FindVenueByExternalID(_ context.Context, externalID string) (*model.Venue, error) {
	for i := range m.venues {
		if m.venues[i].ExternalID == externalID {
			out := m.venues[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockStore) FindVenueByName(_ context.Context, city string, venueType model.VenueType, name string) (*model.Venue, error) {
	for i := range m.venues {
		v := &m.venues[i]
		if v.City == city && v.VenueType == venueType && strings.EqualFold(v.Name, name) {
			out := *v
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockStore) UpdateVenueEnrichment(_ context.Context, v *model.Venue) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if existing := m.venueByID(v.ID); existing != nil {
		*existing = *v
	}
	return nil
}

func (m *mockStore) SetEnrichmentStatus(_ context.Context, id string, status model.EnrichmentStatus) error {
	if v := m.venueByID(id); v != nil {
		v.EnrichmentStatus = status
	}
	return nil
}

func (m *mockStore) FlagUnmatched(_ context.Context, types []model.VenueType) (int, error) {
	n := 0
	for i := range m.venues {
		v := &m.venues[i]
		if containsType(types, v.VenueType) && v.ExternalID == "" && v.EnrichmentStatus == model.EnrichmentNone {
			v.EnrichmentStatus = model.EnrichmentManualReview
			n++
		}
	}
	return n, nil
}

func (m *mockStore) CountVenuesByStatus(_ context.Context, types []model.VenueType) (map[model.EnrichmentStatus]int, error) {
	out := map[model.EnrichmentStatus]int{}
	for _, v := range m.venues {
		if containsType(types, v.VenueType) {
			out[v.EnrichmentStatus]++
		}
	}
	return out, nil
}

func (m *mockStore) CountVenuesBySource(_ context.Context, types []model.VenueType) (map[model.DataSource]int, error) {
	out := map[model.DataSource]int{}
	for _, v := range m.venues {
		if containsType(types, v.VenueType) {
			out[v.DataSource]++
		}
	}
	return out, nil
}

func (m *mockStore) GetProviderConfig(_ context.Context, provider model.ProviderName) (*model.ProviderConfig, error) {
	return m.configs[provider], nil
}

func (m *mockStore) EnsureProviderConfig(_ context.Context, provider model.ProviderName) (*model.ProviderConfig, error) {
	if cfg, ok := m.configs[provider]; ok {
		return cfg, nil
	}
	cfg := model.DefaultProviderConfig(provider, time.Now())
	m.configs[provider] = &cfg
	return &cfg, nil
}

func (m *mockStore) ListProviderConfigs(_ context.Context) ([]model.ProviderConfig, error) {
	var out []model.ProviderConfig
	for _, cfg := range m.configs {
		out = append(out, *cfg)
	}
	return out, nil
}

func (m *mockStore) UpdateProviderUsage(_ context.Context, provider model.ProviderName, requestsToday int, resetDate string) error {
	m.usageUpdates++
	if cfg, ok := m.configs[provider]; ok {
		cfg.RequestsToday = requestsToday
		cfg.QuotaResetDate = resetDate
	}
	return nil
}

func (m *mockStore) SetProviderEnabled(_ context.Context, provider model.ProviderName, enabled bool) error {
	if cfg, ok := m.configs[provider]; ok {
		cfg.Enabled = enabled
	}
	return nil
}

func (m *mockStore) SetProviderQuota(_ context.Context, provider model.ProviderName, dailyQuota int) error {
	if cfg, ok := m.configs[provider]; ok {
		cfg.DailyQuota = dailyQuota
	}
	return nil
}

func (m *mockStore) SetLastFullSync(_ context.Context, provider model.ProviderName, at time.Time) error {
	if cfg, ok := m.configs[provider]; ok {
		cfg.LastFullSync = &at
	}
	return nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

func containsType(types []model.VenueType, t model.VenueType) bool {
	for _, vt := range types {
		if vt == t {
			return true
		}
	}
	return false
}

// mockProvider returns canned candidates. Results are keyed by venue name
// for FindMatch and by external id for PlaceDetails; anything not keyed
// yields the configured error.
type mockProvider struct {
	name model.ProviderName

	matches  map[string]*model.Candidate
	matchErr error

	details    map[string]*model.Candidate
	detailsErr error

	nearby    []model.Candidate
	nearbyErr error

	findCalls   int
	detailCalls int
	searchCalls int
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		name:    model.ProviderGoogle,
		matches: map[string]*model.Candidate{},
		details: map[string]*model.Candidate{},
	}
}

func (m *mockProvider) Name() model.ProviderName { return m.name }

func (m *mockProvider) SearchNearby(_ context.Context, _, _ string, _ model.VenueType, limit int) ([]model.Candidate, error) {
	m.searchCalls++
	if m.nearbyErr != nil {
		return nil, m.nearbyErr
	}
	out := m.nearby
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockProvider) PlaceDetails(_ context.Context, externalID string) (*model.Candidate, error) {
	m.detailCalls++
	if cand, ok := m.details[externalID]; ok {
		out := *cand
		return &out, nil
	}
	if m.detailsErr != nil {
		return nil, m.detailsErr
	}
	return nil, ErrNotFound
}

func (m *mockProvider) FindMatch(_ context.Context, name, _, _, _ string) (*model.Candidate, error) {
	m.findCalls++
	if cand, ok := m.matches[name]; ok {
		out := *cand
		return &out, nil
	}
	if m.matchErr != nil {
		return nil, m.matchErr
	}
	return nil, ErrNoMatch
}
