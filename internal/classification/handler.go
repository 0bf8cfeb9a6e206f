package classification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/wolfman30/grievai-platform/pkg/classify"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

// Analyzer is implemented by Service.
type Analyzer interface {
	Analyze(ctx context.Context, in classify.Input) classify.Result
}

const maxAnalyzeBody = 64 << 10

// analysisFailedPayload is returned when building a response panics.
var analysisFailedPayload = map[string]any{
	"error":      "Analysis failed",
	"category":   classify.CategoryAdministration,
	"priority":   classify.PriorityMedium,
	"department": classify.DepartmentGeneralAdministration,
	"confidence": NotConfiguredConfidence,
	"summary":    "Manual review required",
}

// Handler exposes grievance analysis over HTTP.
type Handler struct {
	analyzer Analyzer
	logger   *logging.Logger
}

func NewHandler(analyzer Analyzer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{analyzer: analyzer, logger: logger}
}

type analyzeRequest struct {
	Description     string `json:"description"`
	Title           string `json:"title"`
	InputMode       string `json:"input_mode"`
	LocationAddress string `json:"location_address"`
}

// Analyze handles POST /api/grievances/analyze. It answers 200 with a
// classification for every request that reaches it.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("grievance analysis panicked", "panic", rec)
			writeJSON(w, http.StatusInternalServerError, analysisFailedPayload)
		}
	}()

	var req analyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxAnalyzeBody)).Decode(&req); err != nil {
		h.logger.Debug("undecodable analyze body, classifying empty input", "error", err)
		req = analyzeRequest{}
	}

	result := h.analyzer.Analyze(r.Context(), classify.Input{
		Title:        req.Title,
		Description:  req.Description,
		LocationHint: req.LocationAddress,
		InputMode:    classify.InputMode(req.InputMode),
	})
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
