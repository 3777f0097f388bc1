package yelp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/businesses/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "Luce", q.Get("term"))
		assert.Equal(t, "Norfolk, VA", q.Get("location"))
		assert.Equal(t, "restaurants", q.Get("categories"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "rating", q.Get("sort_by"))

		rating := 4.5
		count := 87
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Total: 1,
			Businesses: []Business{
				{
					ID:          "luce-norfolk",
					Name:        "Luce",
					Rating:      &rating,
					ReviewCount: &count,
					Price:       "$$",
					Location: Location{
						DisplayAddress: []string{"1001 Granby St", "Norfolk, VA 23510"},
						City:           "Norfolk",
						State:          "VA",
					},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), SearchRequest{
		Term:       "Luce",
		Location:   "Norfolk, VA",
		Categories: "restaurants",
		Limit:      5,
		SortBy:     "rating",
	})

	require.NoError(t, err)
	require.Len(t, resp.Businesses, 1)
	biz := resp.Businesses[0]
	assert.Equal(t, "luce-norfolk", biz.ID)
	assert.InDelta(t, 4.5, *biz.Rating, 0.001)
	assert.Equal(t, 87, *biz.ReviewCount)
	assert.Equal(t, "$$", biz.Price)
	assert.Equal(t, "Norfolk", biz.Location.City)
}

func TestSearch_OmitsEmptyParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.False(t, q.Has("term"))
		assert.False(t, q.Has("categories"))
		assert.False(t, q.Has("limit"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{Location: "Norfolk, VA"})
	require.NoError(t, err)
}

func TestSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "VALIDATION_ERROR", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{Location: "Norfolk, VA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestGetBusiness_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/luce-norfolk", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Business{
			ID:          "luce-norfolk",
			Name:        "Luce",
			Coordinates: &Coordinates{Latitude: 36.85, Longitude: -76.28},
			Hours:       json.RawMessage(`[{"hours_type":"REGULAR","is_open_now":true}]`),
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	biz, err := client.GetBusiness(context.Background(), "luce-norfolk")

	require.NoError(t, err)
	assert.Equal(t, "Luce", biz.Name)
	assert.Equal(t, 36.85, biz.Coordinates.Latitude)
	assert.JSONEq(t, `[{"hours_type":"REGULAR","is_open_now":true}]`, string(biz.Hours))
}

func TestGetBusiness_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "BUSINESS_NOT_FOUND", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.GetBusiness(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}
