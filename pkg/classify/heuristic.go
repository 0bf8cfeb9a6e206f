package classify

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	baseConfidence     = 0.7
	criticalBoost      = 0.1
	matchedConfidence  = 0.8
	confidenceDecimals = 100
)

// CategoryRule maps a keyword group to a category and department.
type CategoryRule struct {
	Category   Category
	Department string
	Confidence float64
	Keywords   []string
}

// RuleSpec is the uncompiled description of a keyword heuristic.
type RuleSpec struct {
	Name       string
	Categories []CategoryRule
	Critical   []string
	High       []string
	Low        []string

	// DefaultPriority applies when no priority keyword matches. Zero means medium.
	DefaultPriority Priority

	// IncludeLocation adds the location hint to the searched text.
	IncludeLocation bool

	// DepartmentInSummary appends "from <department>" to the summary.
	DepartmentInSummary bool
}

var (
	infrastructureKeywords = []string{"road", "street", "bridge", "pothole", "construction", "infrastructure", "pavement", "sidewalk", "traffic", "signal"}
	sanitationKeywords     = []string{"garbage", "waste", "trash", "cleaning", "sanitation", "toilet", "drain", "sewer", "dump"}
	utilityKeywords        = []string{"water", "electricity", "power", "gas", "utility", "outage", "supply", "connection", "meter"}
	safetyKeywords         = []string{"police", "safety", "crime", "theft", "violence", "emergency", "fire", "accident", "security"}
	healthKeywords         = []string{"hospital", "health", "medical", "doctor", "medicine", "clinic", "ambulance", "disease"}
	educationKeywords      = []string{"school", "education", "teacher", "student", "college", "university", "exam", "admission"}

	criticalKeywords = []string{"emergency", "urgent", "critical", "danger", "life", "death", "accident", "fire", "flood", "blocked", "broken"}
	highKeywords     = []string{"important", "serious", "major", "outage", "problem", "issue", "complaint", "broken", "damaged"}
	lowKeywords      = []string{"minor", "small", "suggestion", "improve", "request", "slow", "delay"}
)

// DefaultRules is the unified heuristic shared by the server and clients.
func DefaultRules() RuleSpec {
	return RuleSpec{
		Name: "default",
		Categories: []CategoryRule{
			{Category: CategoryCivicInfrastructure, Department: "Public Works Department", Confidence: matchedConfidence, Keywords: infrastructureKeywords},
			{Category: CategorySanitation, Department: "Sanitation Department", Confidence: matchedConfidence, Keywords: sanitationKeywords},
			{Category: CategoryUtilities, Department: "Utilities Department", Confidence: matchedConfidence, Keywords: utilityKeywords},
			{Category: CategoryPublicSafety, Department: "Police Department", Confidence: matchedConfidence, Keywords: safetyKeywords},
			{Category: CategoryHealthcare, Department: "Health Department", Confidence: matchedConfidence, Keywords: healthKeywords},
			{Category: CategoryEducation, Department: "Education Department", Confidence: matchedConfidence, Keywords: educationKeywords},
		},
		Critical:            criticalKeywords,
		High:                highKeywords,
		Low:                 lowKeywords,
		DefaultPriority:     PriorityMedium,
		IncludeLocation:     true,
		DepartmentInSummary: true,
	}
}

// LegacyServerRules reproduces the server-side variant that predates
// unification. It is kept as a fixture and is not wired into any endpoint.
func LegacyServerRules() RuleSpec {
	spec := DefaultRules()
	spec.Name = "legacy-server"
	spec.Categories[0].Keywords = without(infrastructureKeywords, "infrastructure")
	spec.Critical = without(criticalKeywords, "flood")
	spec.IncludeLocation = false
	spec.DepartmentInSummary = false
	return spec
}

func without(words []string, drop string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w != drop {
			out = append(out, w)
		}
	}
	return out
}

type compiledCategory struct {
	rule    CategoryRule
	pattern *regexp.Regexp
}

// Ruleset is a compiled RuleSpec. It holds no mutable state and is safe for
// concurrent use.
type Ruleset struct {
	spec       RuleSpec
	categories []compiledCategory
	critical   *regexp.Regexp
	high       *regexp.Regexp
	low        *regexp.Regexp
}

// Compile validates spec and builds its token patterns.
func Compile(spec RuleSpec) (*Ruleset, error) {
	if spec.DefaultPriority == "" {
		spec.DefaultPriority = PriorityMedium
	}
	if !spec.DefaultPriority.Valid() {
		return nil, fmt.Errorf("classify: invalid default priority %q", spec.DefaultPriority)
	}

	rs := &Ruleset{spec: spec}
	for _, rule := range spec.Categories {
		if !rule.Category.Valid() {
			return nil, fmt.Errorf("classify: invalid category %q in rule set %q", rule.Category, spec.Name)
		}
		if len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("classify: category %q has no keywords", rule.Category)
		}
		rs.categories = append(rs.categories, compiledCategory{rule: rule, pattern: tokenPattern(rule.Keywords)})
	}
	rs.critical = tokenPattern(spec.Critical)
	rs.high = tokenPattern(spec.High)
	rs.low = tokenPattern(spec.Low)
	return rs, nil
}

// MustCompile is Compile for package-level rule sets.
func MustCompile(spec RuleSpec) *Ruleset {
	rs, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return rs
}

// tokenPattern matches any keyword as a whole token. Nil when words is empty.
func tokenPattern(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
}

func matches(re *regexp.Regexp, text string) bool {
	return re != nil && re.MatchString(text)
}

// Name identifies the rule set in logs.
func (rs *Ruleset) Name() string { return rs.spec.Name }

// Classify maps free text to a fallback classification. It never fails.
func (rs *Ruleset) Classify(in Input) Result {
	text := rs.searchText(in)

	result := Result{
		Category:   CategoryAdministration,
		Priority:   rs.spec.DefaultPriority,
		Department: DepartmentGeneralAdministration,
		Confidence: baseConfidence,
		Fallback:   true,
	}

	for _, c := range rs.categories {
		if c.pattern.MatchString(text) {
			result.Category = c.rule.Category
			result.Department = c.rule.Department
			result.Confidence = c.rule.Confidence
			break
		}
	}

	switch {
	case matches(rs.critical, text):
		result.Priority = PriorityCritical
		result.Confidence = math.Min(result.Confidence+criticalBoost, 1.0)
	case matches(rs.high, text):
		result.Priority = PriorityHigh
	case matches(rs.low, text):
		result.Priority = PriorityLow
	}

	result.Confidence = clampConfidence(result.Confidence)
	result.Summary = rs.summary(result)
	return result
}

func (rs *Ruleset) searchText(in Input) string {
	parts := []string{in.Title, in.Description}
	if rs.spec.IncludeLocation && strings.TrimSpace(in.LocationHint) != "" {
		parts = append(parts, in.LocationHint)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func (rs *Ruleset) summary(r Result) string {
	s := fmt.Sprintf("%s issue requiring %s priority attention", CategoryLabel(r.Category), r.Priority)
	if rs.spec.DepartmentInSummary {
		s += " from " + r.Department
	}
	return TruncateSummary(s)
}

// CategoryLabel renders a category for people, e.g. "Public Safety".
// Casers are stateful, so each call gets its own.
func CategoryLabel(c Category) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "_", " "))
}

// TruncateSummary cuts s to MaxSummaryLength characters.
func TruncateSummary(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= MaxSummaryLength {
		return s
	}
	return strings.TrimSpace(string(runes[:MaxSummaryLength]))
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return math.Round(v*confidenceDecimals) / confidenceDecimals
}

var defaultRuleset = MustCompile(DefaultRules())

// Classify runs the default rule set.
func Classify(in Input) Result {
	return defaultRuleset.Classify(in)
}
