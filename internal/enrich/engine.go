package enrich

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iXanadu/abouthr/internal/config"
	"github.com/iXanadu/abouthr/internal/model"
	"github.com/iXanadu/abouthr/internal/quota"
	"github.com/iXanadu/abouthr/internal/store"
)

// ItemDetail records the per-venue outcome of a batch operation.
type ItemDetail struct {
	Venue   string `json:"venue"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BatchResult aggregates a match-and-enrich batch.
type BatchResult struct {
	Matched int          `json:"matched"`
	Failed  int          `json:"failed"`
	Skipped int          `json:"skipped"`
	Details []ItemDetail `json:"details"`
}

// DiscoverDetail records the per-candidate outcome of a discovery run.
type DiscoverDetail struct {
	Name   string   `json:"name"`
	Action string   `json:"action"` // added | matched | skipped
	Reason string   `json:"reason,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
}

// DiscoverResult aggregates a discovery run.
type DiscoverResult struct {
	Added    int              `json:"added"`
	Existing int              `json:"existing"`
	Details  []DiscoverDetail `json:"details"`
}

// RefreshResult aggregates a stale-venue refresh sweep.
type RefreshResult struct {
	Refreshed int          `json:"refreshed"`
	Failed    int          `json:"failed"`
	Details   []ItemDetail `json:"details"`
}

// Stats summarizes the enrichment state of the catalog.
type Stats struct {
	Total          int                            `json:"total"`
	ByStatus       map[model.EnrichmentStatus]int `json:"by_status"`
	BySource       map[model.DataSource]int       `json:"by_source"`
	EnrichmentRate float64                        `json:"enrichment_rate"`
	QuotaRemaining int                            `json:"quota_remaining"`
	LastFullSync   *time.Time                     `json:"last_full_sync,omitempty"`
}

// Engine orchestrates provider, quota tracker, and venue store. One logical
// worker per invocation: batch operations run sequentially to completion or
// early quota exhaustion. Network calls are the only suspension points.
type Engine struct {
	store    store.Store
	provider Provider
	tracker  *quota.Tracker
	limiter  *rate.Limiter
	region   string
	now      func() time.Time
}

// New creates an Engine with its collaborators injected.
func New(s store.Store, p Provider, t *quota.Tracker, cfg *config.EnrichConfig) *Engine {
	region := "VA"
	rateLimit := 10.0
	if cfg != nil {
		if cfg.Region != "" {
			region = cfg.Region
		}
		if cfg.RateLimit > 0 {
			rateLimit = cfg.RateLimit
		}
	}
	return &Engine{
		store:    s,
		provider: p,
		tracker:  t,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), 1),
		region:   region,
		now:      time.Now,
	}
}

// loadConfig fetches the provider's config row. A missing row is fatal to
// the whole operation; nothing has been written at that point.
func (e *Engine) loadConfig(ctx context.Context) (*model.ProviderConfig, error) {
	cfg, err := e.store.GetProviderConfig(ctx, e.provider.Name())
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	return cfg, nil
}

// itemOutcome is the per-venue result captured into batch details. Per-item
// failures never abort a batch.
type itemOutcome struct {
	ok      bool
	skipped bool
	message string
}

// MatchAndEnrich matches a single venue to the provider and merges the
// result. Venues that already carry an external id are refreshed instead.
func (e *Engine) MatchAndEnrich(ctx context.Context, venue *model.Venue, dryRun bool) (bool, string, error) {
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return false, "", err
	}
	out, err := e.matchAndEnrich(ctx, cfg, venue, dryRun)
	if err != nil {
		return false, "", err
	}
	return out.ok, out.message, nil
}

func (e *Engine) matchAndEnrich(ctx context.Context, cfg *model.ProviderConfig, venue *model.Venue, dryRun bool) (itemOutcome, error) {
	if !venue.VenueType.IsEnrichable() {
		return itemOutcome{skipped: true, message: fmt.Sprintf("venue type %q not enrichable", venue.VenueType)}, nil
	}
	if !quota.Enabled(cfg, e.now()) {
		return itemOutcome{message: "provider disabled or quota exhausted"}, nil
	}

	if venue.ExternalID != "" {
		return e.refresh(ctx, cfg, venue, dryRun)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return itemOutcome{}, eris.Wrap(err, "enrich: rate limit wait")
	}
	cand, matchErr := e.provider.FindMatch(ctx, venue.Name, venue.Address, venue.City, e.region)
	// A failed call still consumed a real API request.
	if !dryRun {
		if err := e.tracker.Record(ctx, cfg); err != nil {
			return itemOutcome{}, err
		}
	}

	if matchErr != nil {
		if !errors.Is(matchErr, ErrNoMatch) {
			zap.L().Warn("find match failed",
				zap.String("venue", venue.Name),
				zap.Error(matchErr),
			)
		}
		if !dryRun {
			if err := e.store.SetEnrichmentStatus(ctx, venue.ID, model.EnrichmentManualReview); err != nil {
				return itemOutcome{}, err
			}
		}
		venue.EnrichmentStatus = model.EnrichmentManualReview
		return itemOutcome{message: fmt.Sprintf("no match found for %q", venue.Name)}, nil
	}

	applyCandidate(venue, cand, e.now())
	if !dryRun {
		if err := e.store.UpdateVenueEnrichment(ctx, venue); err != nil {
			return itemOutcome{}, err
		}
	}
	return itemOutcome{ok: true, message: fmt.Sprintf("matched %q to place id %s", venue.Name, cand.ExternalID)}, nil
}

// Refresh re-fetches and re-merges a venue that already has an external id.
func (e *Engine) Refresh(ctx context.Context, venue *model.Venue, dryRun bool) (bool, string, error) {
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return false, "", err
	}
	out, err := e.refresh(ctx, cfg, venue, dryRun)
	if err != nil {
		return false, "", err
	}
	return out.ok, out.message, nil
}

func (e *Engine) refresh(ctx context.Context, cfg *model.ProviderConfig, venue *model.Venue, dryRun bool) (itemOutcome, error) {
	if venue.ExternalID == "" {
		return itemOutcome{message: "venue has no external place id"}, nil
	}
	if !quota.Enabled(cfg, e.now()) {
		return itemOutcome{message: "provider disabled or quota exhausted"}, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return itemOutcome{}, eris.Wrap(err, "enrich: rate limit wait")
	}
	cand, fetchErr := e.provider.PlaceDetails(ctx, venue.ExternalID)
	if !dryRun {
		if err := e.tracker.Record(ctx, cfg); err != nil {
			return itemOutcome{}, err
		}
	}

	if fetchErr != nil {
		if !errors.Is(fetchErr, ErrNotFound) {
			zap.L().Warn("place details failed",
				zap.String("venue", venue.Name),
				zap.String("external_id", venue.ExternalID),
				zap.Error(fetchErr),
			)
		}
		// The external id is preserved so the next sweep can retry it.
		if !dryRun {
			if err := e.store.SetEnrichmentStatus(ctx, venue.ID, model.EnrichmentFailed); err != nil {
				return itemOutcome{}, err
			}
		}
		venue.EnrichmentStatus = model.EnrichmentFailed
		return itemOutcome{message: fmt.Sprintf("failed to fetch data for place id %s", venue.ExternalID)}, nil
	}

	applyCandidate(venue, cand, e.now())
	if !dryRun {
		if err := e.store.UpdateVenueEnrichment(ctx, venue); err != nil {
			return itemOutcome{}, err
		}
	}
	return itemOutcome{ok: true, message: fmt.Sprintf("refreshed %q", venue.Name)}, nil
}

// applyCandidate merges a candidate into a venue. The live fields and the
// external id are provider-authoritative and always overwritten when
// present; address, phone, website, and coordinates are filled only when
// the venue doesn't already have them, so curator-entered values survive.
func applyCandidate(venue *model.Venue, cand *model.Candidate, now time.Time) {
	if cand.ExternalID != "" {
		venue.ExternalID = cand.ExternalID
	}
	if cand.Address != "" && venue.Address == "" {
		venue.Address = cand.Address
	}
	if cand.Phone != "" && venue.Phone == "" {
		venue.Phone = cand.Phone
	}
	if cand.Website != "" && venue.Website == "" {
		venue.Website = cand.Website
	}
	if cand.Latitude != nil && venue.Latitude == nil {
		venue.Latitude = cand.Latitude
	}
	if cand.Longitude != nil && venue.Longitude == nil {
		venue.Longitude = cand.Longitude
	}
	if cand.Rating != nil {
		venue.Rating = cand.Rating
	}
	if cand.RatingCount != nil {
		venue.RatingCount = cand.RatingCount
	}
	if cand.PriceLevel != nil {
		venue.PriceLevel = cand.PriceLevel
	}
	if len(cand.Hours) > 0 {
		venue.HoursPayload = cand.Hours
	}
	if len(cand.Photos) > 0 {
		venue.PhotosPayload = cand.Photos
	}
	t := now
	venue.LastEnrichedAt = &t
	venue.EnrichmentStatus = model.EnrichmentSuccess
}

// MatchAndEnrichBatch matches all unmatched manual venues of the given types
// in a city. The loop stops early, keeping the partial result, the moment
// the quota runs out; work already committed stays committed.
func (e *Engine) MatchAndEnrichBatch(ctx context.Context, city string, venueTypes []model.VenueType, dryRun bool) (*BatchResult, error) {
	log := zap.L().With(
		zap.String("provider", string(e.provider.Name())),
		zap.String("city", city),
	)

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if len(venueTypes) == 0 {
		venueTypes = model.EnrichableTypes
	}

	unmatched := false
	venues, err := e.store.ListVenues(ctx, store.VenueFilter{
		City:       city,
		Types:      venueTypes,
		DataSource: model.SourceManual,
		Matched:    &unmatched,
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list unmatched venues")
	}

	result := &BatchResult{}
	for i := range venues {
		venue := &venues[i]
		out, err := e.matchAndEnrich(ctx, cfg, venue, dryRun)
		if err != nil {
			return nil, err
		}
		result.Details = append(result.Details, ItemDetail{
			Venue:   venue.Name,
			Success: out.ok,
			Message: out.message,
		})
		switch {
		case out.ok:
			result.Matched++
		case out.skipped:
			result.Skipped++
		default:
			result.Failed++
		}

		if !quota.Enabled(cfg, e.now()) {
			log.Warn("quota exhausted, stopping enrichment",
				zap.Int("processed", i+1),
				zap.Int("remaining", len(venues)-i-1),
			)
			break
		}
	}

	log.Info("batch enrichment complete",
		zap.Int("matched", result.Matched),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// DiscoverNew pulls top venues per type from the provider and reconciles
// them against the catalog with three-tier dedup: exact external id
// anywhere, then case-insensitive name in the same city/type, then create.
func (e *Engine) DiscoverNew(ctx context.Context, city string, venueTypes []model.VenueType, limit int, dryRun bool) (*DiscoverResult, error) {
	log := zap.L().With(
		zap.String("provider", string(e.provider.Name())),
		zap.String("city", city),
	)

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !quota.Enabled(cfg, e.now()) {
		return nil, eris.New("enrich: provider disabled or quota exhausted")
	}
	if len(venueTypes) == 0 {
		venueTypes = model.EnrichableTypes
	}
	if limit <= 0 {
		limit = cfg.VenuesPerCity
	}

	result := &DiscoverResult{}
	for _, venueType := range venueTypes {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "enrich: rate limit wait")
		}
		candidates, searchErr := e.provider.SearchNearby(ctx, city, e.region, venueType, limit)
		// One request per type, whatever it returned.
		if !dryRun {
			if err := e.tracker.Record(ctx, cfg); err != nil {
				return nil, err
			}
		}
		if searchErr != nil {
			log.Warn("search failed",
				zap.String("venue_type", string(venueType)),
				zap.Error(searchErr),
			)
			continue
		}

		for i := range candidates {
			cand := &candidates[i]
			detail, err := e.reconcileCandidate(ctx, city, venueType, cand, dryRun)
			if err != nil {
				return nil, err
			}
			if detail.Action == "added" {
				result.Added++
			} else {
				result.Existing++
			}
			result.Details = append(result.Details, detail)
		}

		if !quota.Enabled(cfg, e.now()) {
			log.Warn("quota exhausted, stopping discovery")
			break
		}
	}

	log.Info("discovery complete",
		zap.Int("added", result.Added),
		zap.Int("existing", result.Existing),
	)
	return result, nil
}

func (e *Engine) reconcileCandidate(ctx context.Context, city string, venueType model.VenueType, cand *model.Candidate, dryRun bool) (DiscoverDetail, error) {
	// Tier (a): known external id anywhere in the catalog.
	existing, err := e.store.FindVenueByExternalID(ctx, cand.ExternalID)
	if err != nil {
		return DiscoverDetail{}, eris.Wrap(err, "enrich: find by external id")
	}
	if existing != nil {
		return DiscoverDetail{Name: cand.Name, Action: "skipped", Reason: "already exists"}, nil
	}

	// Tier (b): same name in the same city and type is a late match, not a
	// new record.
	named, err := e.store.FindVenueByName(ctx, city, venueType, cand.Name)
	if err != nil {
		return DiscoverDetail{}, eris.Wrap(err, "enrich: find by name")
	}
	if named != nil {
		applyCandidate(named, cand, e.now())
		if !dryRun {
			if err := e.store.UpdateVenueEnrichment(ctx, named); err != nil {
				return DiscoverDetail{}, err
			}
		}
		return DiscoverDetail{Name: cand.Name, Action: "matched", Reason: "matched by name"}, nil
	}

	// Tier (c): genuinely new.
	now := e.now()
	venue := &model.Venue{
		City:             city,
		VenueType:        venueType,
		Name:             cand.Name,
		Address:          cand.Address,
		Phone:            cand.Phone,
		Website:          cand.Website,
		Latitude:         cand.Latitude,
		Longitude:        cand.Longitude,
		ExternalID:       cand.ExternalID,
		Rating:           cand.Rating,
		RatingCount:      cand.RatingCount,
		PriceLevel:       cand.PriceLevel,
		HoursPayload:     cand.Hours,
		PhotosPayload:    cand.Photos,
		DataSource:       model.DataSource(e.provider.Name()),
		EnrichmentStatus: model.EnrichmentSuccess,
		LastEnrichedAt:   &now,
		IsPublished:      true,
	}
	if !dryRun {
		if err := e.store.CreateVenue(ctx, venue); err != nil {
			return DiscoverDetail{}, err
		}
	}
	return DiscoverDetail{Name: cand.Name, Action: "added", Rating: cand.Rating}, nil
}

// RefreshStale re-fetches venues whose live data is older than daysOld,
// oldest first so the most neglected records go before recently-touched
// ones.
func (e *Engine) RefreshStale(ctx context.Context, daysOld, limit int, dryRun bool) (*RefreshResult, error) {
	log := zap.L().With(zap.String("provider", string(e.provider.Name())))

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := e.now().Add(-time.Duration(daysOld) * 24 * time.Hour)
	matched := true
	venues, err := e.store.ListVenues(ctx, store.VenueFilter{
		Types:                 model.EnrichableTypes,
		Matched:               &matched,
		EnrichedBefore:        &cutoff,
		OrderByOldestEnriched: true,
		Limit:                 limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list stale venues")
	}

	result := &RefreshResult{Details: []ItemDetail{}}
	for i := range venues {
		venue := &venues[i]
		out, err := e.refresh(ctx, cfg, venue, dryRun)
		if err != nil {
			return nil, err
		}
		result.Details = append(result.Details, ItemDetail{
			Venue:   venue.Name,
			Success: out.ok,
			Message: out.message,
		})
		if out.ok {
			result.Refreshed++
		} else {
			result.Failed++
		}

		if !quota.Enabled(cfg, e.now()) {
			log.Warn("quota exhausted, stopping refresh")
			break
		}
	}

	log.Info("stale refresh complete",
		zap.Int("refreshed", result.Refreshed),
		zap.Int("failed", result.Failed),
		zap.Int("stale", len(venues)),
	)
	return result, nil
}

// FlagUnmatched moves unmatched, never-attempted venues of the given types
// to manual_review in bulk.
func (e *Engine) FlagUnmatched(ctx context.Context, venueTypes []model.VenueType) (int, error) {
	if len(venueTypes) == 0 {
		venueTypes = model.EnrichableTypes
	}
	return e.store.FlagUnmatched(ctx, venueTypes)
}

// MarkFullSync records that a full enrich+discover pass completed.
func (e *Engine) MarkFullSync(ctx context.Context) error {
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return err
	}
	return e.store.SetLastFullSync(ctx, cfg.Provider, e.now())
}

// Stats reports the enrichment state of the enrichable catalog.
func (e *Engine) Stats(ctx context.Context, venueTypes []model.VenueType) (*Stats, error) {
	if len(venueTypes) == 0 {
		venueTypes = model.EnrichableTypes
	}

	byStatus, err := e.store.CountVenuesByStatus(ctx, venueTypes)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: count by status")
	}
	bySource, err := e.store.CountVenuesBySource(ctx, venueTypes)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: count by source")
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	enriched := byStatus[model.EnrichmentSuccess]

	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(enriched)/float64(total)*1000) / 10
	}

	stats := &Stats{
		Total:          total,
		ByStatus:       byStatus,
		BySource:       bySource,
		EnrichmentRate: rate,
	}

	cfg, err := e.store.GetProviderConfig(ctx, e.provider.Name())
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		stats.QuotaRemaining = quota.Remaining(cfg, e.now())
		stats.LastFullSync = cfg.LastFullSync
	}
	return stats, nil
}
