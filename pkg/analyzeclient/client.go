// Package analyzeclient calls the grievance analysis endpoint and falls back
// to the local keyword classifier whenever the server cannot answer.
package analyzeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/grievai-platform/pkg/classify"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

// AnalyzePath is the server route for grievance analysis.
const AnalyzePath = "/api/grievances/analyze"

// ErrEmptyDescription is the only error Analyze returns.
var ErrEmptyDescription = errors.New("analyzeclient: description is required")

// Analysis is a classification plus whether it was computed locally.
type Analysis struct {
	classify.Result
	// Local is true when the server could not be used and the keyword
	// classifier produced the result.
	Local bool `json:"local"`
}

// TokenSource returns the bearer token for the current user.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Client posts grievances to the analysis endpoint.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New builds a client for the server at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze classifies in remotely, or locally when the remote call fails,
// answers non-200, or omits category or priority.
func (c *Client) Analyze(ctx context.Context, in classify.Input) (Analysis, error) {
	in = in.Normalize()
	if in.Description == "" {
		return Analysis{}, ErrEmptyDescription
	}

	result, err := c.remote(ctx, in)
	if err != nil {
		c.logger.Warn("remote analysis unavailable, using offline analysis", "error", err)
		return Analysis{Result: classify.Classify(in), Local: true}, nil
	}
	return Analysis{Result: result}, nil
}

func (c *Client) remote(ctx context.Context, in classify.Input) (classify.Result, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return classify.Result{}, fmt.Errorf("analyzeclient: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AnalyzePath, bytes.NewReader(body))
	if err != nil {
		return classify.Result{}, fmt.Errorf("analyzeclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		token, err := c.tokens(ctx)
		if err != nil {
			return classify.Result{}, fmt.Errorf("analyzeclient: token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify.Result{}, fmt.Errorf("analyzeclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return classify.Result{}, fmt.Errorf("analyzeclient: server returned %d", resp.StatusCode)
	}

	var result classify.Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return classify.Result{}, fmt.Errorf("analyzeclient: decode response: %w", err)
	}
	if result.Category == "" || result.Priority == "" {
		return classify.Result{}, errors.New("analyzeclient: response missing category or priority")
	}
	return result, nil
}
