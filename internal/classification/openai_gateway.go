package classification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/grievai-platform/pkg/classify"
)

const chatCompletionsPath = "/v1/chat/completions"

// GatewayClient talks to an OpenAI-compatible chat completions gateway and
// forces a classify_grievance tool call.
type GatewayClient struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float32
	httpClient  *http.Client
}

// GatewayOption customizes a GatewayClient.
type GatewayOption func(*GatewayClient)

// WithHTTPClient overrides the HTTP client used for gateway calls.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *GatewayClient) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float32) GatewayOption {
	return func(g *GatewayClient) { g.temperature = t }
}

// NewGatewayClient builds a client for baseURL. A baseURL that already ends
// in /chat/completions is used as is.
func NewGatewayClient(baseURL, apiKey, model string, opts ...GatewayOption) (*GatewayClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	endpoint := baseURL
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += chatCompletionsPath
	}
	if strings.TrimSpace(model) == "" {
		model = "google/gemini-2.5-flash"
	}
	g := &GatewayClient{
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		temperature: DefaultTemperature,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GatewayClient) Name() string { return "gateway" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools"`
	ToolChoice  chatTool      `json:"tool_choice"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends one chat completion request and parses the forced tool call.
func (g *GatewayClient) Classify(ctx context.Context, in classify.Input) (classify.Result, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserPrompt(in)},
		},
		Tools: []chatTool{{
			Type: "function",
			Function: chatFunction{
				Name:        classify.ToolName,
				Description: classify.ToolDescription,
				Parameters:  classify.ToolParameters(),
			},
		}},
		ToolChoice:  chatTool{Type: "function", Function: chatFunction{Name: classify.ToolName}},
		Temperature: g.temperature,
	})
	if err != nil {
		return classify.Result{}, fmt.Errorf("classification: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return classify.Result{}, fmt.Errorf("classification: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return classify.Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return classify.Result{}, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify.Result{}, &UpstreamError{StatusCode: resp.StatusCode, Body: truncateBody(payload)}
	}

	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return classify.Result{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	args, err := firstToolArguments(decoded)
	if err != nil {
		return classify.Result{}, err
	}
	return classify.ParseToolArguments([]byte(args))
}

func firstToolArguments(resp chatResponse) (string, error) {
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return "", ErrNoToolCall
	}
	call := resp.Choices[0].Message.ToolCalls[0]
	if call.Function.Name != "" && call.Function.Name != classify.ToolName {
		return "", fmt.Errorf("%w: unexpected tool %q", ErrNoToolCall, call.Function.Name)
	}
	if strings.TrimSpace(call.Function.Arguments) == "" {
		return "", errors.Join(ErrInvalidPayload, errors.New("empty tool arguments"))
	}
	return call.Function.Arguments, nil
}
