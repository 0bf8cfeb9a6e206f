package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// Nominatim is the OpenStreetMap reverse geocoder used when LocationIQ fails.
type Nominatim struct {
	baseURL    string
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewNominatim builds a client throttled to rps. The public instance allows
// one request per second.
func NewNominatim(baseURL string, rps float64, httpClient *http.Client) *Nominatim {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Nominatim{baseURL: baseURL, limiter: newLimiter(rps), httpClient: httpClient}
}

// Reverse returns the display name for a point.
func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("geocode: nominatim throttled: %w", err)
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lng))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("geocode: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode: nominatim request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Provider: SourceNominatim, StatusCode: resp.StatusCode}
	}

	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("geocode: decode nominatim response: %w", err)
	}
	if strings.TrimSpace(payload.DisplayName) == "" {
		return "", &ProviderError{Provider: SourceNominatim, StatusCode: resp.StatusCode, Message: "no display name"}
	}
	return payload.DisplayName, nil
}
