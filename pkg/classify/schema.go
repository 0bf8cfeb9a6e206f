package classify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ToolName is the function every LLM gateway is asked to call.
const ToolName = "classify_grievance"

// ToolDescription is sent alongside the tool schema.
const ToolDescription = "Classify the grievance into category, priority, and department"

// RequiredFields lists the tool arguments that must be present and non-empty.
var RequiredFields = []string{"category", "priority", "department", "confidence", "summary"}

// ErrInvalidToolArguments marks an LLM payload that failed schema validation.
var ErrInvalidToolArguments = errors.New("classify: invalid tool arguments")

// ToolParameters returns the JSON schema of the classify_grievance arguments.
func ToolParameters() map[string]any {
	categoryEnum := make([]string, 0, len(categories))
	for _, c := range categories {
		categoryEnum = append(categoryEnum, string(c))
	}
	priorityEnum := make([]string, 0, len(priorities))
	for _, p := range priorities {
		priorityEnum = append(priorityEnum, string(p))
	}
	required := make([]string, len(RequiredFields))
	copy(required, RequiredFields)

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category":   map[string]any{"type": "string", "enum": categoryEnum},
			"priority":   map[string]any{"type": "string", "enum": priorityEnum},
			"department": map[string]any{"type": "string", "description": "the government department name"},
			"confidence": map[string]any{"type": "number", "description": "0.0 to 1.0"},
			"summary":    map[string]any{"type": "string", "description": "a brief 1-sentence summary"},
		},
		"required": required,
	}
}

type toolArguments struct {
	Category   *string      `json:"category"`
	Priority   *string      `json:"priority"`
	Department *string      `json:"department"`
	Confidence *json.Number `json:"confidence"`
	Summary    *string      `json:"summary"`
}

// ParseToolArguments turns raw classify_grievance arguments into a Result.
// Anything short of a complete, in-schema payload is rejected so callers can
// fall back instead of returning a partial classification.
func ParseToolArguments(raw []byte) (Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Result{}, fmt.Errorf("%w: empty payload", ErrInvalidToolArguments)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args toolArguments
	if err := dec.Decode(&args); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidToolArguments, err)
	}

	var missing []string
	if blank(args.Category) {
		missing = append(missing, "category")
	}
	if blank(args.Priority) {
		missing = append(missing, "priority")
	}
	if blank(args.Department) {
		missing = append(missing, "department")
	}
	if args.Confidence == nil || strings.TrimSpace(args.Confidence.String()) == "" {
		missing = append(missing, "confidence")
	}
	if blank(args.Summary) {
		missing = append(missing, "summary")
	}
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: missing %s", ErrInvalidToolArguments, strings.Join(missing, ", "))
	}

	category := Category(strings.ToLower(strings.TrimSpace(*args.Category)))
	if !category.Valid() {
		return Result{}, fmt.Errorf("%w: unknown category %q", ErrInvalidToolArguments, *args.Category)
	}
	priority := Priority(strings.ToLower(strings.TrimSpace(*args.Priority)))
	if !priority.Valid() {
		return Result{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidToolArguments, *args.Priority)
	}
	confidence, err := args.Confidence.Float64()
	if err != nil || math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Result{}, fmt.Errorf("%w: confidence %q out of range", ErrInvalidToolArguments, args.Confidence.String())
	}

	return Result{
		Category:   category,
		Priority:   priority,
		Department: strings.TrimSpace(*args.Department),
		Confidence: clampConfidence(confidence),
		Summary:    TruncateSummary(*args.Summary),
	}, nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
