package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

const (
	// MinAutocompleteQuery is the shortest query sent to autocomplete.
	MinAutocompleteQuery = 3
	defaultSearchLimit   = 5
	maxProviderBody      = 4 << 20
)

// LocationIQConfig configures a LocationIQ client.
type LocationIQConfig struct {
	APIKey       string
	BaseURL      string
	MapsURL      string
	CountryCodes string
	// RPS throttles outgoing calls; zero disables throttling.
	RPS        float64
	HTTPClient *http.Client
}

// LocationIQ wraps the LocationIQ geocoding and static map APIs.
type LocationIQ struct {
	apiKey       string
	baseURL      string
	mapsURL      string
	countryCodes string
	limiter      *rate.Limiter
	httpClient   *http.Client
}

func NewLocationIQ(cfg LocationIQConfig) *LocationIQ {
	c := &LocationIQ{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		mapsURL:      cfg.MapsURL,
		countryCodes: cfg.CountryCodes,
		limiter:      newLimiter(cfg.RPS),
		httpClient:   cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = "https://us1.locationiq.com/v1"
	}
	if c.mapsURL == "" {
		c.mapsURL = "https://maps.locationiq.com/v3/staticmap"
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c
}

// Configured reports whether an API key is present.
func (c *LocationIQ) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Reverse geocodes a point at street-level zoom.
func (c *LocationIQ) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	q := url.Values{}
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lng))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")
	q.Set("extratags", "1")

	var place Place
	if err := c.getJSON(ctx, "/reverse.php", q, &place); err != nil {
		return Place{}, err
	}
	return place, nil
}

// Search forward geocodes free text.
func (c *LocationIQ) Search(ctx context.Context, query string) ([]Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("addressdetails", "1")
	q.Set("limit", strconv.Itoa(defaultSearchLimit))

	var places []Place
	if err := c.getJSON(ctx, "/search.php", q, &places); err != nil {
		return nil, err
	}
	return places, nil
}

// Autocomplete suggests places biased to the configured countries.
func (c *LocationIQ) Autocomplete(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("addressdetails", "1")
	if c.countryCodes != "" {
		q.Set("countrycodes", c.countryCodes)
	}

	var places []Place
	if err := c.getJSON(ctx, "/autocomplete.php", q, &places); err != nil {
		return nil, err
	}
	for i := range places {
		if places[i].Type == "" {
			places[i].Type = "location"
		}
		if places[i].Importance == nil {
			half := 0.5
			places[i].Importance = &half
		}
	}
	return places, nil
}

// StaticMapURL renders a PNG map URL with a red marker on the point.
func (c *LocationIQ) StaticMapURL(lat, lng float64, zoom, width, height int) string {
	center := formatCoord(lat) + "," + formatCoord(lng)
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("center", center)
	q.Set("zoom", strconv.Itoa(zoom))
	q.Set("size", fmt.Sprintf("%dx%d", width, height))
	q.Set("format", "png")
	q.Set("markers", "icon:large-red-cutout|"+center)
	return c.mapsURL + "?" + q.Encode()
}

// StaticMap downloads the map image so the API key never reaches browsers.
func (c *LocationIQ) StaticMap(ctx context.Context, lat, lng float64, zoom, width, height int) ([]byte, string, error) {
	if !c.Configured() {
		return nil, "", ErrNotConfigured
	}
	body, header, err := c.do(ctx, c.StaticMapURL(lat, lng, zoom, width, height), "image/png")
	if err != nil {
		return nil, "", err
	}
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return body, contentType, nil
}

func (c *LocationIQ) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	q.Set("key", c.apiKey)
	q.Set("format", "json")
	body, _, err := c.do(ctx, c.baseURL+path+"?"+q.Encode(), "application/json")
	if err != nil {
		return err
	}
	if msg := providerErrorMessage(body); msg != "" {
		return &ProviderError{Provider: SourceLocationIQ, StatusCode: http.StatusOK, Message: msg}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("geocode: decode locationiq response: %w", err)
	}
	return nil
}

func (c *LocationIQ) do(ctx context.Context, rawURL, accept string) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("geocode: locationiq throttled: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("geocode: build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("geocode: locationiq request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return nil, nil, fmt.Errorf("geocode: read locationiq response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, nil, ErrInvalidAPIKey
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, nil, &ProviderError{Provider: SourceLocationIQ, StatusCode: resp.StatusCode, Message: providerErrorMessage(body)}
	}
	return body, resp.Header, nil
}

// providerErrorMessage extracts {"error": "..."} bodies.
func providerErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
