package main

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/iXanadu/abouthr/internal/enrich"
	"github.com/iXanadu/abouthr/internal/model"
	"github.com/iXanadu/abouthr/internal/quota"
	"github.com/iXanadu/abouthr/internal/store"
	"github.com/iXanadu/abouthr/pkg/google"
	"github.com/iXanadu/abouthr/pkg/yelp"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "abouthr.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initProvider builds the adapter for a provider, ensuring its config row
// exists. The API key comes from config first, then from the env var the
// config row names.
func initProvider(ctx context.Context, st store.Store, name string) (enrich.Provider, error) {
	if name == "" {
		name = cfg.Enrich.Provider
	}
	provider := model.ProviderName(name)

	pc, err := st.EnsureProviderConfig(ctx, provider)
	if err != nil {
		return nil, err
	}

	switch provider {
	case model.ProviderGoogle:
		key := cfg.Google.Key
		if key == "" {
			key = os.Getenv(pc.APIKeyName)
		}
		if key == "" {
			return nil, eris.Errorf("google API key is required (%s)", pc.APIKeyName)
		}
		return enrich.NewGoogleProvider(google.NewClient(key)), nil
	case model.ProviderYelp:
		key := cfg.Yelp.Key
		if key == "" {
			key = os.Getenv(pc.APIKeyName)
		}
		if key == "" {
			return nil, eris.Errorf("yelp API key is required (%s)", pc.APIKeyName)
		}
		return enrich.NewYelpProvider(yelp.NewClient(key)), nil
	default:
		return nil, eris.Errorf("unknown provider: %s", name)
	}
}

func newEngine(st store.Store, provider enrich.Provider) *enrich.Engine {
	return enrich.New(st, provider, quota.NewTracker(st, nil), &cfg.Enrich)
}

// parseVenueTypes turns a comma-separated --type value into venue types.
// Empty means the enrichable defaults.
func parseVenueTypes(raw string) []model.VenueType {
	if raw == "" {
		return nil
	}
	var types []model.VenueType
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			types = append(types, model.VenueType(t))
		}
	}
	return types
}

// listCities returns the distinct cities that have venues of the given
// types, for whole-catalog runs.
func listCities(ctx context.Context, st store.Store, types []model.VenueType) ([]string, error) {
	venues, err := st.ListVenues(ctx, store.VenueFilter{Types: types})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var cities []string
	for _, v := range venues {
		if !seen[v.City] {
			seen[v.City] = true
			cities = append(cities, v.City)
		}
	}
	return cities, nil
}
