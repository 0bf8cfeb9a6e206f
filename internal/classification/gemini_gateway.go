package classification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wolfman30/grievai-platform/pkg/classify"
)

type geminiGenerateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// GeminiGateway classifies grievances with Google's Gemini API using a
// forced function call.
type GeminiGateway struct {
	client   *genai.Client
	generate geminiGenerateFunc
}

// NewGeminiGateway creates a Gemini-backed gateway.
func NewGeminiGateway(ctx context.Context, apiKey, modelID string, temperature float32) (*GeminiGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("classification: failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelID)
	model.SetTemperature(temperature)
	model.SystemInstruction = genai.NewUserContent(genai.Text(SystemPrompt))
	model.Tools = []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{geminiFunctionDeclaration()}}}
	model.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingAny,
			AllowedFunctionNames: []string{classify.ToolName},
		},
	}

	return &GeminiGateway{client: client, generate: model.GenerateContent}, nil
}

func (g *GeminiGateway) Name() string { return "gemini" }

// Classify sends the grievance as a single user turn.
func (g *GeminiGateway) Classify(ctx context.Context, in classify.Input) (classify.Result, error) {
	resp, err := g.generate(ctx, genai.Text(UserPrompt(in)))
	if err != nil {
		return classify.Result{}, fmt.Errorf("%w: gemini: %w", ErrUpstream, err)
	}
	raw, err := geminiToolArguments(resp)
	if err != nil {
		return classify.Result{}, err
	}
	return classify.ParseToolArguments(raw)
}

// Close releases resources held by the Gemini client.
func (g *GeminiGateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func geminiFunctionDeclaration() *genai.FunctionDeclaration {
	categories := make([]string, 0, len(classify.Categories()))
	for _, c := range classify.Categories() {
		categories = append(categories, string(c))
	}
	priorities := make([]string, 0, len(classify.Priorities()))
	for _, p := range classify.Priorities() {
		priorities = append(priorities, string(p))
	}
	return &genai.FunctionDeclaration{
		Name:        classify.ToolName,
		Description: classify.ToolDescription,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category":   {Type: genai.TypeString, Enum: categories},
				"priority":   {Type: genai.TypeString, Enum: priorities},
				"department": {Type: genai.TypeString},
				"confidence": {Type: genai.TypeNumber},
				"summary":    {Type: genai.TypeString},
			},
			Required: classify.RequiredFields,
		},
	}
}

// geminiToolArguments returns the JSON-encoded args of the first
// classify_grievance call in the response.
func geminiToolArguments(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrNoToolCall
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, ErrNoToolCall
	}
	for _, part := range candidate.Content.Parts {
		call, ok := part.(genai.FunctionCall)
		if !ok || call.Name != classify.ToolName {
			continue
		}
		if call.Args == nil {
			return nil, errors.Join(ErrInvalidPayload, errors.New("empty function args"))
		}
		raw, err := json.Marshal(call.Args)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return raw, nil
	}
	return nil, ErrNoToolCall
}
