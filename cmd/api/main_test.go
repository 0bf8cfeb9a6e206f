package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appconfig "github.com/wolfman30/grievai-platform/internal/config"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, classificationMetrics, geocodeMetrics := setupMetrics()
	if handler == nil || classificationMetrics == nil || geocodeMetrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	classificationMetrics.ObserveResult("heuristic", "not_configured")
	geocodeMetrics.ObserveCache(true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"grievai_classification_results_total", "grievai_geocode_cache_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s to be exported", want)
		}
	}
}

func TestBuildAppWithoutExternalServices(t *testing.T) {
	cfg := &appconfig.Config{
		Port:               "8080",
		LLMProvider:        appconfig.LLMProviderNone,
		CORSAllowedOrigins: []string{"*"},
		AuthRequired:       false,
	}
	a, err := buildApp(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer a.close()

	req := httptest.NewRequest(http.MethodPost, "/api/grievances/analyze", strings.NewReader(`{"description":"Fire in the building"}`))
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"category":"public_safety"`) {
		t.Fatalf("expected keyword classification, got %s", rr.Body.String())
	}
}
