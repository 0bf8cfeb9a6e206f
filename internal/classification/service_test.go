package classification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/grievai-platform/internal/observability/metrics"
	"github.com/wolfman30/grievai-platform/pkg/classify"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

type stubGateway struct {
	calls  atomic.Int32
	result classify.Result
	err    error
	delay  time.Duration
}

func (s *stubGateway) Name() string { return "stub" }

func (s *stubGateway) Classify(ctx context.Context, _ classify.Input) (classify.Result, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return classify.Result{}, ctx.Err()
		}
	}
	return s.result, s.err
}

var potholeInput = classify.Input{Description: "There is a large pothole blocking the road near my house"}

func TestServiceReturnsGatewayResult(t *testing.T) {
	gw := &stubGateway{result: classify.Result{
		Category:   classify.CategoryCivicInfrastructure,
		Priority:   classify.PriorityHigh,
		Department: "Public Works Department",
		Confidence: 0.93,
		Summary:    "Pothole blocking road",
	}}
	svc := NewService(gw, logging.Discard())

	got := svc.Analyze(context.Background(), potholeInput)
	assert.Equal(t, gw.result, got)
	assert.False(t, got.Fallback)
	assert.Equal(t, int32(1), gw.calls.Load())
}

func TestServiceNotConfiguredUsesLowConfidence(t *testing.T) {
	svc := NewService(nil, logging.Discard())

	got := svc.Analyze(context.Background(), potholeInput)
	assert.True(t, got.Fallback)
	assert.Equal(t, classify.CategoryCivicInfrastructure, got.Category)
	assert.Equal(t, 0.3, got.Confidence)
	assert.Equal(t, "none", svc.Provider())
}

func TestServiceGatewayErrorFallsBack(t *testing.T) {
	errs := []error{
		&UpstreamError{StatusCode: 503, Body: "unavailable"},
		ErrNoToolCall,
		classify.ErrInvalidToolArguments,
		errors.New("boom"),
	}
	for _, gwErr := range errs {
		t.Run(gwErr.Error(), func(t *testing.T) {
			gw := &stubGateway{err: gwErr}
			svc := NewService(gw, logging.Discard())

			got := svc.Analyze(context.Background(), potholeInput)
			assert.True(t, got.Fallback)
			assert.Equal(t, 0.6, got.Confidence)
			assert.Equal(t, classify.Classify(potholeInput).Category, got.Category)
			assert.Equal(t, int32(1), gw.calls.Load(), "exactly one gateway attempt")
		})
	}
}

func TestServiceTimeoutFallsBack(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewClassificationMetrics(reg)
	gw := &stubGateway{delay: time.Second}
	svc := NewService(gw, logging.Discard(), WithTimeout(20*time.Millisecond), WithMetrics(m))

	start := time.Now()
	got := svc.Analyze(context.Background(), potholeInput)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, got.Fallback)
	assert.Equal(t, 0.6, got.Confidence)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() != "grievai_classification_results_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "reason" && label.GetValue() == ReasonTimeout {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected a timeout fallback to be counted")
}

func TestServiceUsesCustomRuleset(t *testing.T) {
	svc := NewService(nil, logging.Discard(), WithRuleset(classify.MustCompile(classify.LegacyServerRules())))
	got := svc.Analyze(context.Background(), classify.Input{Description: "Flood in the basement"})
	assert.NotEqual(t, classify.PriorityCritical, got.Priority, "legacy rules have no flood keyword")
}

func TestFallbackReason(t *testing.T) {
	assert.Equal(t, ReasonNone, FallbackReason(nil))
	assert.Equal(t, ReasonTimeout, FallbackReason(context.DeadlineExceeded))
	assert.Equal(t, ReasonUpstream, FallbackReason(&UpstreamError{StatusCode: 500}))
	assert.Equal(t, ReasonNotConfigured, FallbackReason(ErrNotConfigured))
	assert.Equal(t, ReasonUnknown, FallbackReason(errors.New("other")))
}
