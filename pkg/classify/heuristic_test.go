package classify

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DefaultRules(t *testing.T) {
	tests := []struct {
		name           string
		input          Input
		wantCategory   Category
		wantPriority   Priority
		wantDepartment string
		wantConfidence float64
	}{
		{
			name:           "pothole blocking road stays medium because blocking is not blocked",
			input:          Input{Description: "There is a large pothole blocking the road near my house"},
			wantCategory:   CategoryCivicInfrastructure,
			wantPriority:   PriorityMedium,
			wantDepartment: "Public Works Department",
			wantConfidence: 0.8,
		},
		{
			name:           "road blocked is critical",
			input:          Input{Description: "The road is blocked by a fallen tree"},
			wantCategory:   CategoryCivicInfrastructure,
			wantPriority:   PriorityCritical,
			wantDepartment: "Public Works Department",
			wantConfidence: 0.9,
		},
		{
			name:           "small suggestion is low priority administration",
			input:          Input{Description: "Just a small suggestion to improve the park bench design"},
			wantCategory:   CategoryAdministration,
			wantPriority:   PriorityLow,
			wantDepartment: DepartmentGeneralAdministration,
			wantConfidence: 0.7,
		},
		{
			name:           "no keyword at all",
			input:          Input{Title: "Hello", Description: "Please look into this when possible"},
			wantCategory:   CategoryAdministration,
			wantPriority:   PriorityMedium,
			wantDepartment: DepartmentGeneralAdministration,
			wantConfidence: 0.7,
		},
		{
			name:           "broken alone is critical not high",
			input:          Input{Description: "Everything is broken"},
			wantCategory:   CategoryAdministration,
			wantPriority:   PriorityCritical,
			wantDepartment: DepartmentGeneralAdministration,
			wantConfidence: 0.8,
		},
		{
			name:           "first matching category wins",
			input:          Input{Description: "Garbage dumped on the road every night"},
			wantCategory:   CategoryCivicInfrastructure,
			wantPriority:   PriorityMedium,
			wantDepartment: "Public Works Department",
			wantConfidence: 0.8,
		},
		{
			name:           "sanitation",
			input:          Input{Title: "Overflowing drain", Description: "The sewer near the market smells"},
			wantCategory:   CategorySanitation,
			wantPriority:   PriorityMedium,
			wantDepartment: "Sanitation Department",
			wantConfidence: 0.8,
		},
		{
			name:           "utility outage is high",
			input:          Input{Description: "Water outage since Monday"},
			wantCategory:   CategoryUtilities,
			wantPriority:   PriorityHigh,
			wantDepartment: "Utilities Department",
			wantConfidence: 0.8,
		},
		{
			name:           "fire is safety and critical",
			input:          Input{Description: "A fire broke out in the building"},
			wantCategory:   CategoryPublicSafety,
			wantPriority:   PriorityCritical,
			wantDepartment: "Police Department",
			wantConfidence: 0.9,
		},
		{
			name:           "healthcare",
			input:          Input{Description: "No doctor available at the clinic"},
			wantCategory:   CategoryHealthcare,
			wantPriority:   PriorityMedium,
			wantDepartment: "Health Department",
			wantConfidence: 0.8,
		},
		{
			name:           "education with a serious issue",
			input:          Input{Description: "Serious issue with exam results at the university"},
			wantCategory:   CategoryEducation,
			wantPriority:   PriorityHigh,
			wantDepartment: "Education Department",
			wantConfidence: 0.8,
		},
		{
			name:           "matching is case insensitive",
			input:          Input{Title: "URGENT", Description: "STREET LIGHT OUT"},
			wantCategory:   CategoryCivicInfrastructure,
			wantPriority:   PriorityCritical,
			wantDepartment: "Public Works Department",
			wantConfidence: 0.9,
		},
		{
			name:           "plural does not match singular keyword",
			input:          Input{Description: "The roads look nice"},
			wantCategory:   CategoryAdministration,
			wantPriority:   PriorityMedium,
			wantDepartment: DepartmentGeneralAdministration,
			wantConfidence: 0.7,
		},
		{
			name:           "location hint participates",
			input:          Input{Description: "Noise every night", LocationHint: "12 MG Road"},
			wantCategory:   CategoryCivicInfrastructure,
			wantPriority:   PriorityMedium,
			wantDepartment: "Public Works Department",
			wantConfidence: 0.8,
		},
		{
			name:           "flood is critical",
			input:          Input{Description: "Flood in the colony after rain"},
			wantCategory:   CategoryAdministration,
			wantPriority:   PriorityCritical,
			wantDepartment: DepartmentGeneralAdministration,
			wantConfidence: 0.8,
		},
		{
			name:           "whitespace description",
			input:          Input{Description: "   \t\n  "},
			wantCategory:   CategoryAdministration,
			wantPriority:   PriorityMedium,
			wantDepartment: DepartmentGeneralAdministration,
			wantConfidence: 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantPriority, got.Priority)
			assert.Equal(t, tt.wantDepartment, got.Department)
			assert.Equal(t, tt.wantConfidence, got.Confidence)
			assert.True(t, got.Fallback)
			assert.NotEmpty(t, got.Summary)
		})
	}
}

func TestClassify_Summary(t *testing.T) {
	got := Classify(Input{Description: "Urgent: power supply cut in our area"})
	assert.Equal(t, "Utilities issue requiring critical priority attention from Utilities Department", got.Summary)

	got = Classify(Input{Description: "Pothole on the main street"})
	assert.Equal(t, "Civic Infrastructure issue requiring medium priority attention from Public Works Department", got.Summary)
}

func TestLegacyServerRules_Fixture(t *testing.T) {
	legacy := MustCompile(LegacyServerRules())

	tests := []struct {
		name          string
		input         Input
		wantLegacy    Result
		wantDefaultCt Category
		wantDefaultPr Priority
	}{
		{
			name:  "flood only critical in default rules",
			input: Input{Description: "Flood water entered homes"},
			wantLegacy: Result{
				Category:   CategoryUtilities,
				Priority:   PriorityMedium,
				Department: "Utilities Department",
				Confidence: 0.8,
				Summary:    "Utilities issue requiring medium priority attention",
				Fallback:   true,
			},
			wantDefaultCt: CategoryUtilities,
			wantDefaultPr: PriorityCritical,
		},
		{
			name:  "infrastructure keyword only in default rules",
			input: Input{Description: "Poor infrastructure in ward 5"},
			wantLegacy: Result{
				Category:   CategoryAdministration,
				Priority:   PriorityMedium,
				Department: DepartmentGeneralAdministration,
				Confidence: 0.7,
				Summary:    "Administration issue requiring medium priority attention",
				Fallback:   true,
			},
			wantDefaultCt: CategoryCivicInfrastructure,
			wantDefaultPr: PriorityMedium,
		},
		{
			name:  "location ignored by legacy rules",
			input: Input{Description: "Loud music every night", LocationHint: "Station Road"},
			wantLegacy: Result{
				Category:   CategoryAdministration,
				Priority:   PriorityMedium,
				Department: DepartmentGeneralAdministration,
				Confidence: 0.7,
				Summary:    "Administration issue requiring medium priority attention",
				Fallback:   true,
			},
			wantDefaultCt: CategoryCivicInfrastructure,
			wantDefaultPr: PriorityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantLegacy, legacy.Classify(tt.input))

			got := Classify(tt.input)
			assert.Equal(t, tt.wantDefaultCt, got.Category)
			assert.Equal(t, tt.wantDefaultPr, got.Priority)
			assert.True(t, strings.HasSuffix(got.Summary, "from "+got.Department))
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	in := Input{Title: "Accident", Description: "Major accident near the school gate", LocationHint: "Sector 4"}
	first := Classify(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(in))
	}
}

func TestClassify_ConfidenceAlwaysInRange(t *testing.T) {
	texts := []string{
		"", "emergency emergency emergency", "fire accident death", "road broken",
		"minor request", "hospital ambulance urgent", "the quick brown fox",
	}
	for _, text := range texts {
		got := Classify(Input{Description: text})
		assert.GreaterOrEqual(t, got.Confidence, 0.0, text)
		assert.LessOrEqual(t, got.Confidence, 1.0, text)
	}
}

func TestClassify_CriticalBoostIsCapped(t *testing.T) {
	rs := MustCompile(RuleSpec{
		Name: "hot",
		Categories: []CategoryRule{
			{Category: CategoryPublicSafety, Department: "Police Department", Confidence: 0.95, Keywords: []string{"fire"}},
		},
		Critical: []string{"fire"},
	})
	got := rs.Classify(Input{Description: "fire"})
	assert.Equal(t, PriorityCritical, got.Priority)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestClassify_CallerDefaultPriority(t *testing.T) {
	spec := DefaultRules()
	spec.DefaultPriority = PriorityHigh
	rs := MustCompile(spec)

	got := rs.Classify(Input{Description: "Nothing matches here"})
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.Equal(t, CategoryAdministration, got.Category)
}

func TestClassify_Concurrent(t *testing.T) {
	in := Input{Description: "Water supply problem in the hospital"}
	want := Classify(in)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Classify(in))
		}()
	}
	wg.Wait()
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(RuleSpec{DefaultPriority: "whenever"})
	require.Error(t, err)

	_, err = Compile(RuleSpec{Categories: []CategoryRule{{Category: "weather", Keywords: []string{"rain"}}}})
	require.Error(t, err)

	_, err = Compile(RuleSpec{Categories: []CategoryRule{{Category: CategorySanitation}}})
	require.Error(t, err)
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Civic Infrastructure", CategoryLabel(CategoryCivicInfrastructure))
	assert.Equal(t, "Public Safety", CategoryLabel(CategoryPublicSafety))
	assert.Equal(t, "Administration", CategoryLabel(CategoryAdministration))
}

func TestTruncateSummary(t *testing.T) {
	long := strings.Repeat("a", MaxSummaryLength+50)
	assert.Len(t, TruncateSummary(long), MaxSummaryLength)
	assert.Equal(t, "short", TruncateSummary("  short "))
}

func TestInputNormalize(t *testing.T) {
	in := Input{Title: "  t ", Description: " d ", LocationHint: " l ", InputMode: "carrier-pigeon"}.Normalize()
	assert.Equal(t, Input{Title: "t", Description: "d", LocationHint: "l", InputMode: InputModeText}, in)

	in = Input{InputMode: InputModeVoice}.Normalize()
	assert.Equal(t, InputModeVoice, in.InputMode)
}
