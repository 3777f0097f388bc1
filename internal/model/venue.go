package model

import (
	"encoding/json"
	"time"
)

// VenueType categorizes a venue in the guide.
type VenueType string

const (
	VenueTypeRestaurant  VenueType = "restaurant"
	VenueTypeCafeBrewery VenueType = "cafe_brewery"
	VenueTypeAttraction  VenueType = "attraction"
	VenueTypeEvent       VenueType = "event"
	VenueTypeBeach       VenueType = "beach"
)

// EnrichableTypes are the venue types that can be enriched from place APIs.
var EnrichableTypes = []VenueType{VenueTypeRestaurant, VenueTypeCafeBrewery}

// IsEnrichable reports whether venues of this type can be enriched.
func (t VenueType) IsEnrichable() bool {
	for _, e := range EnrichableTypes {
		if t == e {
			return true
		}
	}
	return false
}

// DataSource records where a venue record originated.
type DataSource string

const (
	SourceManual DataSource = "manual"
	SourceGoogle DataSource = "google"
	SourceYelp   DataSource = "yelp"
)

// EnrichmentStatus tracks a venue's progress through the enrichment state machine.
type EnrichmentStatus string

const (
	EnrichmentNone         EnrichmentStatus = "none"
	EnrichmentPending      EnrichmentStatus = "pending"
	EnrichmentSuccess      EnrichmentStatus = "success"
	EnrichmentFailed       EnrichmentStatus = "failed"
	EnrichmentManualReview EnrichmentStatus = "manual_review"
)

// Venue is a single catalog record: restaurant, cafe/brewery, attraction,
// event, or beach. One model with a type discriminator rather than five
// near-identical ones.
type Venue struct {
	ID          string    `json:"id" db:"id"`
	City        string    `json:"city" db:"city"`
	VenueType   VenueType `json:"venue_type" db:"venue_type"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CuisineType string    `json:"cuisine_type,omitempty" db:"cuisine_type"`

	Address   string   `json:"address,omitempty" db:"address"`
	Website   string   `json:"website,omitempty" db:"website"`
	Phone     string   `json:"phone,omitempty" db:"phone"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	// ExternalID is the provider's place identifier. Empty means the venue
	// has not been matched yet.
	ExternalID string `json:"external_id,omitempty" db:"external_id"`

	// Live fields, provider-authoritative once enrichment succeeds.
	Rating        *float64        `json:"rating,omitempty" db:"rating"`
	RatingCount   *int            `json:"rating_count,omitempty" db:"rating_count"`
	PriceLevel    *int            `json:"price_level,omitempty" db:"price_level"`
	HoursPayload  json.RawMessage `json:"hours,omitempty" db:"hours_payload"`
	PhotosPayload json.RawMessage `json:"photos,omitempty" db:"photos_payload"`

	DataSource       DataSource       `json:"data_source" db:"data_source"`
	EnrichmentStatus EnrichmentStatus `json:"enrichment_status" db:"enrichment_status"`
	LastEnrichedAt   *time.Time       `json:"last_enriched_at,omitempty" db:"last_enriched_at"`

	IsPublished bool      `json:"is_published" db:"is_published"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// IsEnriched reports whether the venue carries current provider data.
func (v *Venue) IsEnriched() bool {
	return v.EnrichmentStatus == EnrichmentSuccess
}

// NeedsRefresh reports whether the venue's live data is older than maxAge.
func (v *Venue) NeedsRefresh(now time.Time, maxAge time.Duration) bool {
	if v.LastEnrichedAt == nil {
		return true
	}
	return now.Sub(*v.LastEnrichedAt) > maxAge
}

// PriceLevelDisplay renders the price level as dollar signs, or "" when unset.
func (v *Venue) PriceLevelDisplay() string {
	if v.PriceLevel == nil || *v.PriceLevel <= 0 {
		return ""
	}
	n := *v.PriceLevel
	if n > 4 {
		n = 4
	}
	return "$$$$"[:n]
}
