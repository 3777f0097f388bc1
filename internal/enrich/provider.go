// Package enrich reconciles the venue catalog with external place-data
// providers: matching curated venues to provider records, refreshing live
// fields, discovering new venues, and reporting enrichment state, all under
// each provider's daily call quota.
package enrich

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/iXanadu/abouthr/internal/model"
)

// Sentinel outcomes for adapter calls. ErrNoMatch and ErrNotFound are
// expected per-item results; the engine routes them through the state
// machine instead of aborting a batch.
var (
	// ErrNoMatch means a fuzzy lookup found no acceptable candidate.
	ErrNoMatch = eris.New("enrich: no matching place")
	// ErrNotFound means the provider has no record for a known external id.
	ErrNotFound = eris.New("enrich: place not found")
	// ErrNotConfigured means no provider config row exists. Fatal to the
	// whole run; nothing is written when it is returned.
	ErrNotConfigured = eris.New("enrich: provider not configured")
)

// Provider adapts one external place-data source to the normalized candidate
// schema. Implementations translate venue types, build queries, and map
// native payloads; they never touch the store or the quota.
type Provider interface {
	// Name returns the provider identifier (matches the provider config row).
	Name() model.ProviderName
	// SearchNearby finds top venues of a type near a city, re-sorted
	// descending by rating and truncated to limit. No results is an empty
	// slice, not an error.
	SearchNearby(ctx context.Context, city, region string, venueType model.VenueType, limit int) ([]model.Candidate, error)
	// PlaceDetails fetches one place by its external id. Returns ErrNotFound
	// when the provider no longer has the record.
	PlaceDetails(ctx context.Context, externalID string) (*model.Candidate, error)
	// FindMatch does a fuzzy lookup for a venue with no external id yet.
	// Returns ErrNoMatch when nothing acceptable comes back.
	FindMatch(ctx context.Context, name, address, city, region string) (*model.Candidate, error)
}

// Registry manages the available provider adapters. Adapters are registered
// at startup and selected by name; the engine receives one by injection.
type Registry struct {
	mu        sync.RWMutex
	providers map[model.ProviderName]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[model.ProviderName]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not registered.
func (r *Registry) Get(name model.ProviderName) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names.
func (r *Registry) List() []model.ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]model.ProviderName, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
