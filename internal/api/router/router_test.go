package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/consult-booking/internal/booking"
	"github.com/wolfman30/consult-booking/internal/http/handlers"
	"github.com/wolfman30/consult-booking/internal/observability/metrics"
	"github.com/wolfman30/consult-booking/internal/sessions"
	"github.com/wolfman30/consult-booking/pkg/logging"
)

func newTestRouter(t *testing.T, secret string) http.Handler {
	t.Helper()

	logger := logging.NewWithWriter("error", &bytes.Buffer{})
	reg := prometheus.NewRegistry()
	submitter := booking.SubmitterFunc(func(_ context.Context, req booking.SubmitRequest) (*booking.SubmittedMeeting, error) {
		out := booking.SubmittedMeeting{MeetingDraft: req.Draft.Clone()}
		out.ID = "router-1"
		return &out, nil
	})
	wizard := handlers.NewWizardHandler(handlers.WizardHandlerConfig{
		Store:     sessions.NewMemoryStore(time.Hour),
		Submitter: submitter,
		Metrics:   metrics.NewWizardMetrics(reg),
		Logger:    logger,
	})

	cfg := &Config{
		Logger:             logger,
		WizardHandler:      wizard,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"https://book.example"},
		OrganizerJWTSecret: secret,
		RateLimitRPS:       100,
		RateLimitBurst:     100,
	}

	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterBookingOptions(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/booking/options", nil)
	req.Header.Set("Origin", "https://book.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://book.example" {
		t.Fatalf("expected CORS header, got %q", got)
	}
}

func TestRouterSessionUsesTokenSubjectAsOrganizer(t *testing.T) {
	router := newTestRouter(t, "secret")

	claims := jwt.RegisteredClaims{Subject: "user-77", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/booking/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var resp handlers.SessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Draft.Organizer == nil || *resp.Draft.Organizer != "user-77" {
		t.Fatalf("organizer = %v", resp.Draft.Organizer)
	}
}

func TestRouterRejectsBadToken(t *testing.T) {
	router := newTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/booking/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, "")

	create := httptest.NewRecorder()
	router.ServeHTTP(create, httptest.NewRequest(http.MethodPost, "/api/booking/sessions", nil))
	var session handlers.SessionResponse
	if err := json.NewDecoder(create.Body).Decode(&session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	next := httptest.NewRecorder()
	router.ServeHTTP(next, httptest.NewRequest(http.MethodPost, "/api/booking/sessions/"+session.ID+"/next", nil))
	if next.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected blocked move, got %d", next.Code)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("consult_booking_wizard_transitions_total")) {
		t.Fatalf("expected wizard metrics in output")
	}
}
