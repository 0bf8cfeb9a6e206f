package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/grievai-platform/internal/observability/metrics"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

// Static map defaults match the grievance detail view.
const (
	DefaultMapZoom   = 15
	DefaultMapWidth  = 400
	DefaultMapHeight = 200
)

// Service resolves locations through LocationIQ with an OpenStreetMap fallback.
type Service struct {
	locationIQ *LocationIQ
	nominatim  *Nominatim
	cache      *Cache
	metrics    *metrics.GeocodeMetrics
	logger     *logging.Logger
}

func NewService(liq *LocationIQ, osm *Nominatim, cache *Cache, m *metrics.GeocodeMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{locationIQ: liq, nominatim: osm, cache: cache, metrics: m, logger: logger}
}

// ResolveAddress turns coordinates into a human address. It tries
// LocationIQ, then Nominatim, then falls back to the coordinates themselves,
// so it only fails for invalid coordinates.
func (s *Service) ResolveAddress(ctx context.Context, lat, lng float64) (ResolvedAddress, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return ResolvedAddress{}, err
	}
	key := fmt.Sprintf("reverse:%.6f,%.6f", lat, lng)
	var cached ResolvedAddress
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	resolved := ResolvedAddress{Lat: lat, Lng: lng, MapsLink: MapsLink(lat, lng)}
	if s.locationIQ.Configured() {
		place, err := s.locationIQ.Reverse(ctx, lat, lng)
		s.observe("reverse", SourceLocationIQ, err)
		if err == nil && place.Label() != "" {
			resolved.Address, resolved.Source = place.Label(), SourceLocationIQ
			s.cacheSet(ctx, key, resolved)
			return resolved, nil
		}
		if err != nil {
			s.logger.Warn("locationiq reverse geocode failed", "error", err)
		}
	}

	if s.nominatim != nil {
		name, err := s.nominatim.Reverse(ctx, lat, lng)
		s.observe("reverse", SourceNominatim, err)
		if err == nil {
			resolved.Address, resolved.Source = name, SourceNominatim
			s.cacheSet(ctx, key, resolved)
			return resolved, nil
		}
		s.logger.Warn("nominatim reverse geocode failed", "error", err)
	}

	resolved.Address, resolved.Source = CoordinateLabel(lat, lng), SourceCoordinates
	return resolved, nil
}

// Autocomplete never fails: short queries, a missing key and provider
// errors all yield an empty list.
func (s *Service) Autocomplete(ctx context.Context, query string, limit int) []Place {
	query = strings.TrimSpace(query)
	if !s.locationIQ.Configured() || len([]rune(query)) < MinAutocompleteQuery {
		return []Place{}
	}
	if limit <= 0 || limit > 10 {
		limit = defaultSearchLimit
	}
	key := fmt.Sprintf("autocomplete:%d:%s", limit, strings.ToLower(query))
	var cached []Place
	if s.cacheGet(ctx, key, &cached) {
		return cached
	}

	places, err := s.locationIQ.Autocomplete(ctx, query, limit)
	s.observe("autocomplete", SourceLocationIQ, err)
	if err != nil {
		s.logger.Warn("locationiq autocomplete failed", "error", err)
		return []Place{}
	}
	if places == nil {
		places = []Place{}
	}
	s.cacheSet(ctx, key, places)
	return places
}

// Search forward geocodes an address.
func (s *Service) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Place{}, nil
	}
	key := "search:" + strings.ToLower(query)
	var cached []Place
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	places, err := s.locationIQ.Search(ctx, query)
	s.observe("search", SourceLocationIQ, err)
	if err != nil {
		return nil, err
	}
	if places == nil {
		places = []Place{}
	}
	s.cacheSet(ctx, key, places)
	return places, nil
}

// StaticMap fetches a PNG of the point.
func (s *Service) StaticMap(ctx context.Context, lat, lng float64, zoom, width, height int) ([]byte, string, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, "", err
	}
	img, contentType, err := s.locationIQ.StaticMap(ctx, lat, lng, zoom, width, height)
	s.observe("static_map", SourceLocationIQ, err)
	return img, contentType, err
}

func (s *Service) observe(operation, provider string, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotConfigured):
		status = "not_configured"
	case errors.Is(err, ErrRateLimited):
		status = "rate_limited"
	case errors.Is(err, ErrInvalidAPIKey):
		status = "unauthorized"
	default:
		status = "error"
	}
	s.metrics.ObserveLookup(operation, provider, status)
}

func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, out)
	if err != nil {
		s.logger.Warn("geocode cache read failed", "key", key, "error", err)
	}
	s.metrics.ObserveCache(hit)
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("geocode cache write failed", "key", key, "error", err)
	}
}
