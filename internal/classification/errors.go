package classification

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/grievai-platform/pkg/classify"
)

var (
	// ErrNotConfigured means no LLM provider credentials were supplied.
	ErrNotConfigured = errors.New("classification: llm gateway not configured")
	// ErrUpstream covers transport failures and non-2xx gateway responses.
	ErrUpstream = errors.New("classification: llm gateway request failed")
	// ErrInvalidPayload means the gateway answered with a body we could not decode.
	ErrInvalidPayload = errors.New("classification: invalid gateway payload")
	// ErrNoToolCall means the model answered without calling classify_grievance.
	ErrNoToolCall = errors.New("classification: no tool call in response")
)

// UpstreamError carries the status and a bounded excerpt of a failed gateway response.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("classification: llm gateway returned %d: %s", e.StatusCode, e.Body)
}

// Is lets callers match an UpstreamError with errors.Is(err, ErrUpstream).
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Fallback reasons used as metric labels and log values.
const (
	ReasonNone           = "none"
	ReasonNotConfigured  = "not_configured"
	ReasonTimeout        = "timeout"
	ReasonUpstream       = "upstream"
	ReasonNoToolCall     = "no_tool_call"
	ReasonInvalidPayload = "invalid_payload"
	ReasonUnknown        = "unknown"
)

// FallbackReason maps a gateway error to its reason label.
func FallbackReason(err error) string {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrNotConfigured):
		return ReasonNotConfigured
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrNoToolCall):
		return ReasonNoToolCall
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, classify.ErrInvalidToolArguments):
		return ReasonInvalidPayload
	case errors.Is(err, ErrUpstream):
		return ReasonUpstream
	default:
		return ReasonUnknown
	}
}

const maxErrorBody = 512

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
