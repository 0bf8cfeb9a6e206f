package grievances

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/grievai-platform/internal/identity"
	"github.com/wolfman30/grievai-platform/pkg/classify"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

// Analyzer classifies a grievance that arrives without an analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in classify.Input) classify.Result
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
	maxTitleLength   = 100
	maxCreateBody    = 64 << 10
)

// Handler serves the grievance record endpoints.
type Handler struct {
	repo     Repository
	analyzer Analyzer
	logger   *logging.Logger
}

func NewHandler(repo Repository, analyzer Analyzer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, analyzer: analyzer, logger: logger}
}

// Create handles POST /api/grievances.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = p.UserID
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, ErrMissingDescription.Error())
		return
	}
	if req.InputMode == "" {
		req.InputMode = classify.InputModeText
	}
	if !req.InputMode.Valid() {
		writeError(w, http.StatusBadRequest, ErrInvalidInputMode.Error())
		return
	}
	if req.AIAnalysis != nil && !req.AIAnalysis.Valid() {
		h.logger.Warn("discarding client analysis", "user_id", p.UserID)
		req.AIAnalysis = nil
	}

	if req.AIAnalysis == nil && h.analyzer != nil {
		result := h.analyzer.Analyze(r.Context(), classify.Input{
			Title:        req.Title,
			Description:  req.Description,
			LocationHint: req.LocationAddress,
			InputMode:    req.InputMode,
		})
		req.AIAnalysis = &result
	}
	if req.AIAnalysis != nil {
		if req.Title == "" {
			req.Title = truncateRunes(req.AIAnalysis.Summary, maxTitleLength)
		}
		if req.Category == "" {
			req.Category = req.AIAnalysis.Category
		}
		if req.Priority == "" {
			req.Priority = req.AIAnalysis.Priority
		}
	}

	g, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.writeRepoError(w, "create grievance", err)
		return
	}
	h.logger.Info("grievance submitted",
		"tracking_id", g.TrackingID,
		"category", g.Category,
		"priority", g.Priority,
		"input_mode", g.InputMode,
	)
	writeJSON(w, http.StatusCreated, g)
}

type listResponse struct {
	Grievances []*Grievance `json:"grievances"`
	Count      int          `json:"count"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	Stats      Stats        `json:"stats"`
}

// List handles GET /api/grievances. Citizens only ever see their own.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	filter := ListFilter{
		Status: Status(strings.TrimSpace(q.Get("status"))),
		Query:  strings.TrimSpace(q.Get("q")),
		Limit:  parseBoundedInt(q.Get("limit"), defaultListLimit, 1, maxListLimit),
		Offset: parseBoundedInt(q.Get("offset"), 0, 0, 1<<30),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, ErrInvalidStatus.Error())
		return
	}
	if !p.Role.IsStaff() {
		filter.UserID = p.UserID
	}

	items, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.writeRepoError(w, "list grievances", err)
		return
	}
	if items == nil {
		items = []*Grievance{}
	}
	stats, err := h.repo.Stats(r.Context(), filter.UserID)
	if err != nil {
		h.writeRepoError(w, "grievance stats", err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Grievances: items,
		Count:      len(items),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		Stats:      stats,
	})
}

// Get handles GET /api/grievances/{trackingID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Timeline handles GET /api/grievances/{trackingID}/timeline.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	entries, err := h.repo.Timeline(r.Context(), g.ID)
	if err != nil {
		h.writeRepoError(w, "grievance timeline", err)
		return
	}
	if entries == nil {
		entries = []TimelineEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tracking_id": g.TrackingID,
		"timeline":    entries,
	})
}

// UpdateStatus handles PATCH /api/grievances/{trackingID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if !p.Role.IsStaff() {
		h.writeRepoError(w, "update status", ErrForbidden)
		return
	}

	var update StatusUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	update.ActorID = p.UserID
	update.Note = strings.TrimSpace(update.Note)

	trackingID := chi.URLParam(r, "trackingID")
	g, err := h.repo.UpdateStatus(r.Context(), trackingID, update)
	if err != nil {
		h.writeRepoError(w, "update status", err)
		return
	}
	h.logger.Info("grievance status updated",
		"tracking_id", g.TrackingID,
		"status", g.Status,
		"actor_id", p.UserID,
	)
	writeJSON(w, http.StatusOK, g)
}

// loadVisible fetches the grievance named in the URL if the caller may see it.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (*Grievance, bool) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	g, err := h.repo.GetByTrackingID(r.Context(), chi.URLParam(r, "trackingID"))
	if err != nil {
		h.writeRepoError(w, "get grievance", err)
		return nil, false
	}
	if !p.Role.IsStaff() && g.UserID != p.UserID {
		h.writeRepoError(w, "get grievance", ErrForbidden)
		return nil, false
	}
	return g, true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrGrievanceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("grievance store failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseBoundedInt(raw string, fallback, lo, hi int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
