package geocode

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wolfman30/grievai-platform/pkg/logging"
)

// Handler exposes geocoding over HTTP so provider keys stay server side.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Autocomplete handles GET /api/locations/autocomplete?q=&limit=.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, h.svc.Autocomplete(r.Context(), r.URL.Query().Get("q"), limit))
}

// Reverse handles GET /api/locations/reverse?lat=&lng=.
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := parseLatLng(w, r)
	if !ok {
		return
	}
	resolved, err := h.svc.ResolveAddress(r.Context(), lat, lng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// Search handles GET /api/locations/search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	places, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Warn("forward geocode failed", "error", err)
		writeError(w, providerStatus(err), providerMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// StaticMap handles GET /api/locations/static-map and streams the PNG.
func (h *Handler) StaticMap(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := parseLatLng(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	zoom := intParam(q.Get("zoom"), DefaultMapZoom, 1, 18)
	width := intParam(q.Get("width"), DefaultMapWidth, 1, 1280)
	height := intParam(q.Get("height"), DefaultMapHeight, 1, 1280)

	img, contentType, err := h.svc.StaticMap(r.Context(), lat, lng, zoom, width, height)
	if err != nil {
		if errors.Is(err, ErrInvalidCoordinates) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Warn("static map fetch failed", "error", err)
		writeError(w, providerStatus(err), providerMessage(err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func parseLatLng(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(q.Get("lng")), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "lat and lng must be numbers")
		return 0, 0, false
	}
	return lat, lng, true
}

func intParam(raw string, def, lo, hi int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}

func providerStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func providerMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "location services are not configured"
	case errors.Is(err, ErrRateLimited):
		return "location service rate limit exceeded"
	default:
		return "location service unavailable"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
