package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		mask := r.Header.Get("X-Goog-FieldMask")
		assert.Contains(t, mask, "places.rating")
		assert.Contains(t, mask, "places.regularOpeningHours")

		var body TextSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "best restaurants in Norfolk, VA", body.TextQuery)
		assert.Equal(t, "restaurant", body.IncludedType)
		assert.Equal(t, 20, body.MaxResultCount)

		rating := 4.5
		count := 127
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TextSearchResponse{
			Places: []Place{
				{
					ID:              "abc123",
					DisplayName:     DisplayName{Text: "Luce"},
					Rating:          &rating,
					UserRatingCount: &count,
					PriceLevel:      "PRICE_LEVEL_MODERATE",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{
		TextQuery:      "best restaurants in Norfolk, VA",
		IncludedType:   "restaurant",
		MaxResultCount: 20,
	})

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "Luce", resp.Places[0].DisplayName.Text)
	assert.InDelta(t, 4.5, *resp.Places[0].Rating, 0.001)
	assert.Equal(t, 127, *resp.Places[0].UserRatingCount)
	assert.Equal(t, "PRICE_LEVEL_MODERATE", resp.Places[0].PriceLevel)
}

func TestTextSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TextSearchResponse{Places: nil})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "nothing here"})

	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestTextSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "anything"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGetPlace_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/places/abc123", r.URL.Path)
		mask := r.Header.Get("X-Goog-FieldMask")
		assert.Contains(t, mask, "rating")
		assert.NotContains(t, mask, "places.rating", "details mask fields are unprefixed")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Place{
			ID:               "places/abc123",
			DisplayName:      DisplayName{Text: "Luce"},
			FormattedAddress: "1001 Granby St, Norfolk, VA",
			Location:         &LatLng{Latitude: 36.85, Longitude: -76.28},
			RegularOpeningHours: &OpeningHours{
				WeekdayDescriptions: []string{"Monday: 11 AM - 10 PM"},
				Periods:             json.RawMessage(`[{"open":{"day":1,"hour":11}}]`),
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	place, err := client.GetPlace(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "Luce", place.DisplayName.Text)
	assert.Equal(t, 36.85, place.Location.Latitude)
	require.NotNil(t, place.RegularOpeningHours)
	assert.JSONEq(t, `[{"open":{"day":1,"hour":11}}]`, string(place.RegularOpeningHours.Periods))
}

func TestGetPlace_AcceptsResourceName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/abc123", r.URL.Path, "prefix not doubled")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Place{ID: "places/abc123"})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.GetPlace(context.Background(), "places/abc123")
	require.NoError(t, err)
}

func TestGetPlace_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.GetPlace(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}
