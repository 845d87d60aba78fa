package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appconfig "github.com/wolfman30/consult-booking/internal/config"
	"github.com/wolfman30/consult-booking/pkg/logging"
)

func TestSetupWizardMetricsExposesMetrics(t *testing.T) {
	handler, metrics := setupWizardMetrics()
	if handler == nil || metrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	metrics.ObserveSubmission("create", "success", 0.2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "consult_booking_submissions_total") {
		t.Fatalf("expected submission counter to be exported")
	}
}

func TestNewRouterConfigCopiesHTTPSettings(t *testing.T) {
	cfg := &appconfig.Config{
		CORSAllowedOrigins: []string{"https://book.example"},
		OrganizerJWTSecret: "secret",
		RateLimitRPS:       7,
		RateLimitBurst:     3,
	}
	rc := newRouterConfig(cfg, logging.NewWithWriter("error", &bytes.Buffer{}), nil, nil, nil)
	if rc.OrganizerJWTSecret != "secret" || rc.RateLimitRPS != 7 || rc.RateLimitBurst != 3 {
		t.Fatalf("unexpected router config %+v", rc)
	}
	if len(rc.CORSAllowedOrigins) != 1 {
		t.Fatalf("expected CORS origins to be copied")
	}
}
