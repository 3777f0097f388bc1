package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVenueType_IsEnrichable(t *testing.T) {
	assert.True(t, VenueTypeRestaurant.IsEnrichable())
	assert.True(t, VenueTypeCafeBrewery.IsEnrichable())
	assert.False(t, VenueTypeAttraction.IsEnrichable())
	assert.False(t, VenueTypeEvent.IsEnrichable())
	assert.False(t, VenueTypeBeach.IsEnrichable())
	assert.False(t, VenueType("bogus").IsEnrichable())
}

func TestVenue_NeedsRefresh(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	maxAge := 7 * 24 * time.Hour

	v := &Venue{}
	assert.True(t, v.NeedsRefresh(now, maxAge), "never enriched")

	recent := now.Add(-time.Hour)
	v.LastEnrichedAt = &recent
	assert.False(t, v.NeedsRefresh(now, maxAge))

	old := now.Add(-8 * 24 * time.Hour)
	v.LastEnrichedAt = &old
	assert.True(t, v.NeedsRefresh(now, maxAge))
}

func TestVenue_PriceLevelDisplay(t *testing.T) {
	p := func(n int) *int { return &n }
	tests := []struct {
		level *int
		want  string
	}{
		{nil, ""},
		{p(0), ""},
		{p(1), "$"},
		{p(2), "$$"},
		{p(4), "$$$$"},
		{p(9), "$$$$"},
	}
	for _, tt := range tests {
		v := &Venue{PriceLevel: tt.level}
		assert.Equal(t, tt.want, v.PriceLevelDisplay())
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	today := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)

	g := DefaultProviderConfig(ProviderGoogle, today)
	assert.Equal(t, ProviderGoogle, g.Provider)
	assert.False(t, g.Enabled)
	assert.Equal(t, "GOOGLE_PLACES_API_KEY", g.APIKeyName)
	assert.Equal(t, DefaultDailyQuota, g.DailyQuota)
	assert.Equal(t, DefaultVenuesPerCity, g.VenuesPerCity)
	assert.Equal(t, "2025-06-15", g.QuotaResetDate)

	y := DefaultProviderConfig(ProviderYelp, today)
	assert.Equal(t, "YELP_FUSION_API_KEY", y.APIKeyName)
}

func TestDateString(t *testing.T) {
	assert.Equal(t, "2025-01-02", DateString(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
}
