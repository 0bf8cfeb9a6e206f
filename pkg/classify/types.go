package classify

import "strings"

// Category is the grievance category assigned by a classifier.
type Category string

const (
	CategoryCivicInfrastructure Category = "civic_infrastructure"
	CategorySanitation          Category = "sanitation"
	CategoryUtilities           Category = "utilities"
	CategoryPublicSafety        Category = "public_safety"
	CategoryHealthcare          Category = "healthcare"
	CategoryEducation           Category = "education"
	CategoryAdministration      Category = "administration"
)

// Priority is the urgency assigned to a grievance.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DepartmentGeneralAdministration receives anything no category rule claims.
const DepartmentGeneralAdministration = "General Administration"

// MaxSummaryLength bounds Result.Summary.
const MaxSummaryLength = 200

var categories = []Category{
	CategoryCivicInfrastructure,
	CategorySanitation,
	CategoryUtilities,
	CategoryPublicSafety,
	CategoryHealthcare,
	CategoryEducation,
	CategoryAdministration,
}

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Categories returns every valid category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Priorities returns every valid priority, lowest first.
func Priorities() []Priority {
	out := make([]Priority, len(priorities))
	copy(out, priorities)
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	for _, known := range priorities {
		if p == known {
			return true
		}
	}
	return false
}

// InputMode records how the citizen captured the grievance.
type InputMode string

const (
	InputModeText     InputMode = "text"
	InputModeVoice    InputMode = "voice"
	InputModeImage    InputMode = "image"
	InputModeLocation InputMode = "location"
)

// Valid reports whether m is one of the known input modes.
func (m InputMode) Valid() bool {
	switch m {
	case InputModeText, InputModeVoice, InputModeImage, InputModeLocation:
		return true
	}
	return false
}

// Input is the text a classifier works on.
type Input struct {
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description"`
	LocationHint string    `json:"location_address,omitempty"`
	InputMode    InputMode `json:"input_mode,omitempty"`
}

// Normalize trims every field and defaults the input mode to text.
func (in Input) Normalize() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LocationHint = strings.TrimSpace(in.LocationHint)
	if !in.InputMode.Valid() {
		in.InputMode = InputModeText
	}
	return in
}

// Result is a complete classification. Every field is always populated.
type Result struct {
	Category   Category `json:"category"`
	Priority   Priority `json:"priority"`
	Department string   `json:"department"`
	Confidence float64  `json:"confidence"`
	Summary    string   `json:"summary"`
	Fallback   bool     `json:"fallback"`
}

// Valid reports whether r could have come from a classifier: known enums,
// a department and a confidence in [0, 1].
func (r Result) Valid() bool {
	return r.Category.Valid() &&
		r.Priority.Valid() &&
		strings.TrimSpace(r.Department) != "" &&
		r.Confidence >= 0 && r.Confidence <= 1
}

// WithConfidence returns a copy of r with confidence clamped to [0, 1].
func (r Result) WithConfidence(confidence float64) Result {
	r.Confidence = clampConfidence(confidence)
	return r
}
