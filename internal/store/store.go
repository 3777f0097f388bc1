// Package store persists the venue catalog and provider configurations.
package store

import (
	"context"
	"time"

	"github.com/iXanadu/abouthr/internal/model"
)

// VenueFilter specifies criteria for listing venues.
type VenueFilter struct {
	City             string
	Types            []model.VenueType
	DataSource       model.DataSource
	EnrichmentStatus model.EnrichmentStatus
	// Matched filters on whether external_id is set. Nil means don't filter.
	Matched *bool
	// EnrichedBefore selects venues whose last_enriched_at is set and older
	// than the given time.
	EnrichedBefore *time.Time
	// OrderByOldestEnriched sorts ascending by last_enriched_at so the most
	// neglected venues come first.
	OrderByOldestEnriched bool
	Limit                 int
}

// Store defines the persistence interface for the venue catalog and the
// per-provider quota state.
type Store interface {
	// Venues
	CreateVenue(ctx context.Context, v *model.Venue) error
	GetVenue(ctx context.Context, id string) (*model.Venue, error)
	ListVenues(ctx context.Context, filter VenueFilter) ([]model.Venue, error)
	// FindVenueByExternalID returns nil, nil when no venue has the id.
	FindVenueByExternalID(ctx context.Context, externalID string) (*model.Venue, error)
	// FindVenueByName does a case-insensitive exact name match within a
	// city and venue type. Returns nil, nil when there is no match.
	FindVenueByName(ctx context.Context, city string, venueType model.VenueType, name string) (*model.Venue, error)
	// UpdateVenueEnrichment writes all enrichment-owned fields of the venue
	// in a single atomic update.
	UpdateVenueEnrichment(ctx context.Context, v *model.Venue) error
	SetEnrichmentStatus(ctx context.Context, id string, status model.EnrichmentStatus) error
	// FlagUnmatched moves unmatched venues of the given types from status
	// none to manual_review and reports how many rows changed.
	FlagUnmatched(ctx context.Context, types []model.VenueType) (int, error)
	CountVenuesByStatus(ctx context.Context, types []model.VenueType) (map[model.EnrichmentStatus]int, error)
	CountVenuesBySource(ctx context.Context, types []model.VenueType) (map[model.DataSource]int, error)

	// Provider configs
	// GetProviderConfig returns nil, nil when the provider has no config row.
	GetProviderConfig(ctx context.Context, provider model.ProviderName) (*model.ProviderConfig, error)
	// EnsureProviderConfig fetches the config, creating it with defaults on
	// first use of a provider.
	EnsureProviderConfig(ctx context.Context, provider model.ProviderName) (*model.ProviderConfig, error)
	ListProviderConfigs(ctx context.Context) ([]model.ProviderConfig, error)
	UpdateProviderUsage(ctx context.Context, provider model.ProviderName, requestsToday int, resetDate string) error
	SetProviderEnabled(ctx context.Context, provider model.ProviderName, enabled bool) error
	SetProviderQuota(ctx context.Context, provider model.ProviderName, dailyQuota int) error
	SetLastFullSync(ctx context.Context, provider model.ProviderName, at time.Time) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
