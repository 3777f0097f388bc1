package enrich

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/iXanadu/abouthr/internal/model"
	"github.com/iXanadu/abouthr/pkg/yelp"
)

// yelpCategoryMap translates internal venue types to Yelp category aliases.
// See https://www.yelp.com/developers/documentation/v3/all_category_list
var yelpCategoryMap = map[model.VenueType][]string{
	model.VenueTypeRestaurant:  {"restaurants"},
	model.VenueTypeCafeBrewery: {"coffee", "breweries", "bars"},
}

// YelpProvider adapts the Yelp Fusion API to the Provider contract. Yelp
// complements Google with a different review base; prices come as $ tiers
// and ids are opaque business ids.
type YelpProvider struct {
	client yelp.Client
}

// NewYelpProvider creates a Yelp Fusion adapter.
func NewYelpProvider(client yelp.Client) *YelpProvider {
	return &YelpProvider{client: client}
}

func (p *YelpProvider) Name() model.ProviderName {
	return model.ProviderYelp
}

func (p *YelpProvider) SearchNearby(ctx context.Context, city, region string, venueType model.VenueType, limit int) ([]model.Candidate, error) {
	categories, ok := yelpCategoryMap[venueType]
	if !ok {
		categories = []string{"restaurants"}
	}

	reqLimit := limit
	if reqLimit > 50 {
		reqLimit = 50 // API cap per search
	}

	resp, err := p.client.Search(ctx, yelp.SearchRequest{
		Location:   city + ", " + region,
		Categories: strings.Join(categories, ","),
		Limit:      reqLimit,
		SortBy:     "rating",
	})
	if err != nil {
		return nil, eris.Wrapf(err, "yelp adapter: search %s in %s", venueType, city)
	}

	candidates := make([]model.Candidate, 0, len(resp.Businesses))
	for i := range resp.Businesses {
		candidates = append(candidates, normalizeYelpBusiness(&resp.Businesses[i]))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RatingOrZero() > candidates[j].RatingOrZero()
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (p *YelpProvider) PlaceDetails(ctx context.Context, externalID string) (*model.Candidate, error) {
	biz, err := p.client.GetBusiness(ctx, externalID)
	if errors.Is(err, yelp.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "yelp adapter: details %s", externalID)
	}
	cand := normalizeYelpBusiness(biz)
	return &cand, nil
}

func (p *YelpProvider) FindMatch(ctx context.Context, name, address, city, region string) (*model.Candidate, error) {
	location := city + ", " + region
	if address != "" {
		location = address
	}

	resp, err := p.client.Search(ctx, yelp.SearchRequest{
		Term:     name,
		Location: location,
		Limit:    5,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "yelp adapter: find match %q", name)
	}
	if len(resp.Businesses) == 0 {
		return nil, ErrNoMatch
	}

	nameLower := strings.ToLower(name)
	for i := range resp.Businesses {
		bizName := strings.ToLower(resp.Businesses[i].Name)
		if bizName == "" {
			continue
		}
		if strings.Contains(bizName, nameLower) || strings.Contains(nameLower, bizName) {
			cand := normalizeYelpBusiness(&resp.Businesses[i])
			return &cand, nil
		}
	}

	first := &resp.Businesses[0]
	addr := strings.ToLower(strings.Join(first.Location.DisplayAddress, ", "))
	if strings.Contains(addr, strings.ToLower(city)) {
		cand := normalizeYelpBusiness(first)
		return &cand, nil
	}

	return nil, ErrNoMatch
}

func normalizeYelpBusiness(biz *yelp.Business) model.Candidate {
	cand := model.Candidate{
		ExternalID: biz.ID,
		Name:       biz.Name,
		Address:    strings.Join(biz.Location.DisplayAddress, ", "),
		Phone:      biz.DisplayPhone,
		Website:    biz.URL,
		Rating:     biz.Rating,
		Hours:      biz.Hours,
	}
	if biz.Coordinates != nil {
		lat, lng := biz.Coordinates.Latitude, biz.Coordinates.Longitude
		cand.Latitude = &lat
		cand.Longitude = &lng
	}
	if biz.ReviewCount != nil {
		n := *biz.ReviewCount
		cand.RatingCount = &n
	}
	// Yelp prices are $ through $$$$; there is no free tier.
	if n := len(biz.Price); n >= 1 && n <= 4 && strings.Count(biz.Price, "$") == n {
		cand.PriceLevel = &n
	}
	return cand
}
