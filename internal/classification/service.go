package classification

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/grievai-platform/internal/observability/metrics"
	"github.com/wolfman30/grievai-platform/pkg/classify"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

var tracer = otel.Tracer("grievai/classification")

// Confidence reported on heuristic results, depending on why the LLM was skipped.
const (
	NotConfiguredConfidence = 0.3
	GatewayErrorConfidence  = 0.6
)

// DefaultTimeout bounds the single gateway attempt.
const DefaultTimeout = 10 * time.Second

// Service classifies grievances with an LLM gateway and falls back to the
// keyword ruleset. It never returns an error.
type Service struct {
	gateway Gateway
	rules   *classify.Ruleset
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.ClassificationMetrics
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithMetrics(m *metrics.ClassificationMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithRuleset swaps the fallback ruleset.
func WithRuleset(rs *classify.Ruleset) ServiceOption {
	return func(s *Service) {
		if rs != nil {
			s.rules = rs
		}
	}
}

// NewService wires a gateway. A nil gateway means classification always uses
// the keyword ruleset.
func NewService(gateway Gateway, logger *logging.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		gateway: gateway,
		rules:   classify.MustCompile(classify.DefaultRules()),
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider names the configured gateway, or "none".
func (s *Service) Provider() string {
	if s.gateway == nil {
		return "none"
	}
	return s.gateway.Name()
}

// Analyze returns the LLM classification when the gateway answers with a
// valid tool call, otherwise the keyword result with a reduced confidence.
func (s *Service) Analyze(ctx context.Context, in classify.Input) classify.Result {
	in = in.Normalize()
	ctx, span := tracer.Start(ctx, "classification.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", s.Provider()),
		attribute.String("grievance.input_mode", string(in.InputMode)),
	)

	result, err := s.callGateway(ctx, in)
	if err == nil {
		s.metrics.ObserveResult("llm", ReasonNone)
		span.SetAttributes(
			attribute.String("grievance.category", string(result.Category)),
			attribute.Bool("grievance.fallback", false),
		)
		return result
	}

	reason := FallbackReason(err)
	confidence := GatewayErrorConfidence
	if reason == ReasonNotConfigured {
		confidence = NotConfiguredConfidence
	} else {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		s.logger.Warn("llm classification failed, using keyword fallback",
			"provider", s.Provider(),
			"reason", reason,
			"error", err,
		)
	}

	fallback := s.rules.Classify(in).WithConfidence(confidence)
	s.metrics.ObserveResult("heuristic", reason)
	span.SetAttributes(
		attribute.String("grievance.category", string(fallback.Category)),
		attribute.Bool("grievance.fallback", true),
		attribute.String("classification.fallback_reason", reason),
	)
	return fallback
}

func (s *Service) callGateway(ctx context.Context, in classify.Input) (classify.Result, error) {
	if s.gateway == nil {
		return classify.Result{}, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "classification.gateway",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.provider", s.gateway.Name())),
	)
	defer span.End()

	start := time.Now()
	result, err := s.gateway.Classify(ctx, in)
	s.metrics.ObserveGatewayLatency(s.gateway.Name(), err == nil, time.Since(start).Seconds())
	if err != nil && ctx.Err() == context.DeadlineExceeded && FallbackReason(err) != ReasonTimeout {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, FallbackReason(err))
	}
	return result, err
}
