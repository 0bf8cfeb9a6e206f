package classification

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/grievai-platform/pkg/classify"
)

// Gateway classifies a grievance with a language model. Implementations make
// exactly one upstream call and return classify.ErrInvalidToolArguments (or
// one of this package's sentinel errors) when the answer is unusable.
type Gateway interface {
	Name() string
	Classify(ctx context.Context, in classify.Input) (classify.Result, error)
}

// DefaultTemperature keeps classifications close to deterministic.
const DefaultTemperature float32 = 0.2

// SystemPrompt instructs the model how to classify citizen grievances.
const SystemPrompt = `You are an AI assistant for a government grievance redressal system called GrievAI.
Analyze the citizen's grievance and classify it.

Return a JSON object with:
- category: one of [civic_infrastructure, sanitation, utilities, public_safety, healthcare, education, administration]
- priority: one of [low, medium, high, critical] based on urgency
- department: the government department name
- confidence: 0.0 to 1.0
- summary: a brief 1-sentence summary

Base priority on:
- critical: safety hazards, health emergencies, blocked roads
- high: utilities outage, major inconvenience
- medium: general complaints, service requests
- low: suggestions, minor issues`

// UserPrompt renders the grievance text sent as the user turn.
func UserPrompt(in classify.Input) string {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Not provided"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\nDescription: %s", title, strings.TrimSpace(in.Description))
	if loc := strings.TrimSpace(in.LocationHint); loc != "" {
		fmt.Fprintf(&b, "\n\nLocation: %s", loc)
	}
	return b.String()
}
