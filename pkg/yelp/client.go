// Package yelp is a minimal client for the Yelp Fusion v3 API.
package yelp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.yelp.com/v3"

// ErrNotFound is returned by GetBusiness when the business id does not exist.
var ErrNotFound = eris.New("yelp: business not found")

// Client performs Yelp Fusion API operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	GetBusiness(ctx context.Context, businessID string) (*Business, error)
}

// SearchRequest holds business-search parameters.
type SearchRequest struct {
	Term       string
	Location   string
	Categories string
	Limit      int
	SortBy     string
}

// SearchResponse is the response from business search.
type SearchResponse struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
}

// Business represents a Yelp business.
type Business struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	DisplayPhone string       `json:"display_phone"`
	Rating       *float64     `json:"rating,omitempty"`
	ReviewCount  *int         `json:"review_count,omitempty"`
	Price        string       `json:"price,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	Location     Location     `json:"location"`
	// Hours are present on the details endpoint only; passed through opaque.
	Hours json.RawMessage `json:"hours,omitempty"`
}

// Coordinates is a geographic coordinate pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location holds a business's address fields.
type Location struct {
	DisplayAddress []string `json:"display_address"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	ZipCode        string   `json:"zip_code"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Yelp Fusion API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, searchReq SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	if searchReq.Term != "" {
		q.Set("term", searchReq.Term)
	}
	q.Set("location", searchReq.Location)
	if searchReq.Categories != "" {
		q.Set("categories", searchReq.Categories)
	}
	if searchReq.Limit > 0 {
		q.Set("limit", strconv.Itoa(searchReq.Limit))
	}
	if searchReq.SortBy != "" {
		q.Set("sort_by", searchReq.SortBy)
	}

	respBody, err := c.get(ctx, "/businesses/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "yelp: unmarshal response")
	}
	return &result, nil
}

func (c *httpClient) GetBusiness(ctx context.Context, businessID string) (*Business, error) {
	respBody, err := c.get(ctx, "/businesses/"+url.PathEscape(businessID))
	if err != nil {
		return nil, err
	}

	var biz Business
	if err := json.Unmarshal(respBody, &biz); err != nil {
		return nil, eris.Wrap(err, "yelp: unmarshal response")
	}
	return &biz, nil
}

func (c *httpClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "yelp: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "yelp: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "yelp: read response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("yelp: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
