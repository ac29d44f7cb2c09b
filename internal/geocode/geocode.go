// Package geocode resolves addresses to coordinates via a Nominatim-style
// search API.
package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/grihome/grihome/internal/httputil"
)

// DefaultBaseURL is the public Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Result is one resolved location.
type Result struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

// Client queries the geocoding API.
type Client struct {
	http   *httputil.Client
	apiKey string
}

// New creates a geocoding client against baseURL (DefaultBaseURL if empty).
// apiKey may be empty; hosted Nominatim-compatible providers require one.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http: httputil.NewClient(httputil.ClientConfig{
			BaseURL: baseURL,
			Timeout: 10 * time.Second,
		}),
		apiKey: apiKey,
	}
}

// Lookup resolves a free-form address to its best match.
func (c *Client) Lookup(ctx context.Context, address string) (Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Result{}, fmt.Errorf("address is required")
	}

	path := "/search?format=json&limit=1&q=" + url.QueryEscape(address)
	if c.apiKey != "" {
		path += "&key=" + url.QueryEscape(c.apiKey)
	}
	resp, err := c.http.Get(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("geocode request: %w", err)
	}
	body, err := httputil.ReadBody(resp, 1<<20)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("geocode request failed with status %d", resp.StatusCode)
	}

	first := gjson.GetBytes(body, "0")
	if !first.Exists() {
		return Result{}, fmt.Errorf("no match for address %q", address)
	}
	return Result{
		Lat:         first.Get("lat").Float(),
		Lng:         first.Get("lon").Float(),
		DisplayName: first.Get("display_name").String(),
	}, nil
}
