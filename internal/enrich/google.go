package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/iXanadu/abouthr/internal/model"
	"github.com/iXanadu/abouthr/pkg/google"
)

// googleTypeMap translates internal venue types to Google place types.
// See https://developers.google.com/maps/documentation/places/web-service/place-types
var googleTypeMap = map[model.VenueType][]string{
	model.VenueTypeRestaurant:  {"restaurant", "meal_takeaway", "meal_delivery"},
	model.VenueTypeCafeBrewery: {"cafe", "bar", "bakery"},
}

// googlePriceLevels maps the Places API enum to the 0-4 scale.
var googlePriceLevels = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

// maxPhotoRefs bounds how many photo references are kept per venue.
const maxPhotoRefs = 5

// GoogleProvider adapts the Google Places API (New) to the Provider contract.
type GoogleProvider struct {
	client google.Client
}

// NewGoogleProvider creates a Google Places adapter.
func NewGoogleProvider(client google.Client) *GoogleProvider {
	return &GoogleProvider{client: client}
}

func (p *GoogleProvider) Name() model.ProviderName {
	return model.ProviderGoogle
}

func (p *GoogleProvider) SearchNearby(ctx context.Context, city, region string, venueType model.VenueType, limit int) ([]model.Candidate, error) {
	placeTypes, ok := googleTypeMap[venueType]
	if !ok {
		placeTypes = []string{"restaurant"}
	}

	maxPerRequest := limit
	if maxPerRequest > 20 {
		maxPerRequest = 20 // API cap per text search
	}

	var candidates []model.Candidate
	for _, placeType := range placeTypes {
		resp, err := p.client.TextSearch(ctx, google.TextSearchRequest{
			TextQuery:      fmt.Sprintf("best %ss in %s, %s", placeType, city, region),
			IncludedType:   placeType,
			MaxResultCount: maxPerRequest,
			RankPreference: "RELEVANCE",
		})
		if err != nil {
			return nil, eris.Wrapf(err, "google adapter: search %s in %s", placeType, city)
		}
		for i := range resp.Places {
			candidates = append(candidates, normalizeGooglePlace(&resp.Places[i]))
		}
		if len(candidates) >= limit {
			break
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RatingOrZero() > candidates[j].RatingOrZero()
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (p *GoogleProvider) PlaceDetails(ctx context.Context, externalID string) (*model.Candidate, error) {
	place, err := p.client.GetPlace(ctx, externalID)
	if errors.Is(err, google.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "google adapter: details %s", externalID)
	}
	cand := normalizeGooglePlace(place)
	return &cand, nil
}

func (p *GoogleProvider) FindMatch(ctx context.Context, name, address, city, region string) (*model.Candidate, error) {
	query := fmt.Sprintf("%s %s, %s", name, city, region)
	if address != "" {
		query = fmt.Sprintf("%s %s", name, address)
	}

	resp, err := p.client.TextSearch(ctx, google.TextSearchRequest{
		TextQuery:      query,
		MaxResultCount: 5,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "google adapter: find match %q", name)
	}
	if len(resp.Places) == 0 {
		return nil, ErrNoMatch
	}

	// Name containment either direction wins.
	nameLower := strings.ToLower(name)
	for i := range resp.Places {
		placeName := strings.ToLower(resp.Places[i].DisplayName.Text)
		if placeName == "" {
			continue
		}
		if strings.Contains(placeName, nameLower) || strings.Contains(nameLower, placeName) {
			cand := normalizeGooglePlace(&resp.Places[i])
			return &cand, nil
		}
	}

	// No name match: accept the top result only if it is in the right city.
	first := &resp.Places[0]
	if strings.Contains(strings.ToLower(first.FormattedAddress), strings.ToLower(city)) {
		cand := normalizeGooglePlace(first)
		return &cand, nil
	}

	return nil, ErrNoMatch
}

func normalizeGooglePlace(place *google.Place) model.Candidate {
	cand := model.Candidate{
		ExternalID: strings.TrimPrefix(place.ID, "places/"),
		Name:       place.DisplayName.Text,
		Address:    place.FormattedAddress,
		Phone:      place.NationalPhoneNumber,
		Website:    place.WebsiteURI,
		MapsURL:    place.GoogleMapsURI,
		Rating:     place.Rating,
	}
	if place.Location != nil {
		lat, lng := place.Location.Latitude, place.Location.Longitude
		cand.Latitude = &lat
		cand.Longitude = &lng
	}
	if place.UserRatingCount != nil {
		n := *place.UserRatingCount
		cand.RatingCount = &n
	}
	if level, ok := googlePriceLevels[place.PriceLevel]; ok {
		cand.PriceLevel = &level
	}

	hours := place.RegularOpeningHours
	if hours == nil {
		hours = place.CurrentOpeningHours
	}
	if hours != nil {
		// Keep the payload opaque; display code interprets it later.
		if raw, err := json.Marshal(hours); err == nil {
			cand.Hours = raw
		}
	}

	if len(place.Photos) > 0 {
		photos := place.Photos
		if len(photos) > maxPhotoRefs {
			photos = photos[:maxPhotoRefs]
		}
		if raw, err := json.Marshal(photos); err == nil {
			cand.Photos = raw
		}
	}

	return cand
}
