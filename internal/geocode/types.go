package geocode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result sources reported by ResolveAddress.
const (
	SourceLocationIQ  = "locationiq"
	SourceNominatim   = "nominatim"
	SourceCoordinates = "coordinates"
)

const userAgent = "GrievAI-App/1.0"

var (
	// ErrNotConfigured means no LocationIQ key was supplied.
	ErrNotConfigured = errors.New("geocode: locationiq api key not configured")
	// ErrInvalidAPIKey maps LocationIQ 401 responses.
	ErrInvalidAPIKey = errors.New("geocode: locationiq api key is invalid or expired")
	// ErrRateLimited maps LocationIQ 429 responses.
	ErrRateLimited = errors.New("geocode: locationiq rate limit exceeded")
	// ErrInvalidCoordinates rejects latitudes or longitudes out of range.
	ErrInvalidCoordinates = errors.New("geocode: coordinates out of range")
)

// ProviderError is any other failed provider response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geocode: %s error %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("geocode: %s error %d", e.Provider, e.StatusCode)
}

// Address holds the structured components of a geocoded place.
type Address struct {
	HouseNumber   string `json:"house_number,omitempty"`
	Road          string `json:"road,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
	City          string `json:"city,omitempty"`
	County        string `json:"county,omitempty"`
	State         string `json:"state,omitempty"`
	Postcode      string `json:"postcode,omitempty"`
	Country       string `json:"country,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
}

// Place is a geocoding match.
type Place struct {
	PlaceID     string   `json:"place_id,omitempty"`
	DisplayName string   `json:"display_name"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	Type        string   `json:"type,omitempty"`
	Importance  *float64 `json:"importance,omitempty"`
	Address     Address  `json:"address"`
}

// Label is the display name, or the formatted address when the provider sent none.
func (p Place) Label() string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return FormatAddress(p.Address)
}

// ResolvedAddress is the outcome of ResolveAddress.
type ResolvedAddress struct {
	Address  string  `json:"address"`
	Source   string  `json:"source"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	MapsLink string  `json:"maps_link"`
}

// FormatAddress joins the non-empty components from most to least specific.
func FormatAddress(a Address) string {
	var parts []string
	switch {
	case a.HouseNumber != "" && a.Road != "":
		parts = append(parts, a.HouseNumber+" "+a.Road)
	case a.Road != "":
		parts = append(parts, a.Road)
	}
	for _, part := range []string{a.Neighbourhood, a.Suburb, a.City, a.County, a.State, a.Postcode, a.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// CoordinateLabel is the last-resort address for a point.
func CoordinateLabel(lat, lng float64) string {
	return fmt.Sprintf("Location: %.6f, %.6f", lat, lng)
}

// MapsLink opens the point in Google Maps.
func MapsLink(lat, lng float64) string {
	return "https://www.google.com/maps?q=" + formatCoord(lat) + "," + formatCoord(lng)
}

// ValidateCoordinates rejects NaN and out-of-range values.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
