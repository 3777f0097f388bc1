package model

import "encoding/json"

// Candidate is the normalized output of a provider adapter call. It is
// transient: candidates are merged into venues or discarded, never persisted
// as-is.
type Candidate struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Website    string `json:"website,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Rating      *float64 `json:"rating,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`

	// Opaque provider payloads, interpreted only by display code.
	Hours  json.RawMessage `json:"hours,omitempty"`
	Photos json.RawMessage `json:"photos,omitempty"`

	MapsURL string `json:"maps_url,omitempty"`
}

// RatingOrZero returns the rating, treating unset as zero for sorting.
func (c *Candidate) RatingOrZero() float64 {
	if c.Rating == nil {
		return 0
	}
	return *c.Rating
}
