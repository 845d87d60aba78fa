package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/consult-booking/internal/booking"
	appconfig "github.com/wolfman30/consult-booking/internal/config"
	"github.com/wolfman30/consult-booking/pkg/logging"
)

type apiCall struct {
	method string
	path   string
	body   map[string]any
}

func newMeetingServer(t *testing.T) (*httptest.Server, func() []apiCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []apiCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, apiCall{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"meeting":{"_id":"abc123"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []apiCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]apiCall(nil), calls...)
	}
}

func testConfig(baseURL string) *appconfig.Config {
	return &appconfig.Config{
		LogLevel:          "error",
		MeetingAPIBaseURL: baseURL,
		MeetingAPITimeout: 5 * time.Second,
		DefaultTimezone:   booking.DefaultTimezone,
	}
}

func fixedClock() booking.Option {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return booking.WithClock(func() time.Time { return now })
}

func script(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

var detailAnswers = []string{
	"",                 // title keeps default
	"Asha",             // name
	"asha@example.com", // email
	"+91 90000 00000",  // phone
	"10k",              // current revenue
	"50k",              // goal
	"leads",            // struggle
	"",                 // notes
	"45",               // duration
}

func TestRun_BooksMeeting(t *testing.T) {
	srv, calls := newMeetingServer(t)
	var out bytes.Buffer

	lines := []string{"", "2025-06-02", "3"}
	lines = append(lines, detailAnswers...)
	lines = append(lines, "y", "y", "")

	err := run(context.Background(), testConfig(srv.URL), "", script(lines...), &out, logging.NewWithWriter("error", io.Discard), fixedClock())
	require.NoError(t, err)

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/api/client-create-meeting", got[0].path)
	assert.Equal(t, "10:30am", got[0].body["startTime"])
	assert.Equal(t, float64(45), got[0].body["duration"])
	assert.Equal(t, "Consultation Call", got[0].body["title"])

	text := out.String()
	assert.Contains(t, text, booking.MsgCreated)
	assert.Contains(t, text, "Meeting ID: abc123")
	assert.Contains(t, text, "Monday, June 2, 2025")
}

func TestRun_ReportsMissingFieldsAndRetries(t *testing.T) {
	srv, calls := newMeetingServer(t)
	var out bytes.Buffer

	lines := []string{"", "2025-06-02", "10:30am"}
	// first pass leaves the name blank, so the duration prompt never comes
	lines = append(lines, "", "", "asha@example.com", "+91 90000 00000", "10k", "50k", "leads", "")
	lines = append(lines, detailAnswers...)
	lines = append(lines, "y", "y", "y")

	err := run(context.Background(), testConfig(srv.URL), "", script(lines...), &out, logging.NewWithWriter("error", io.Discard), fixedClock())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "! Please enter your name")
	require.Len(t, calls(), 1)
	assert.Equal(t, "Asha", calls()[0].body["guestName"])
}

func TestRun_TermsRefusedNeverCallsAPI(t *testing.T) {
	srv, calls := newMeetingServer(t)
	var out bytes.Buffer

	lines := []string{"", "2025-06-02", "3"}
	lines = append(lines, detailAnswers...)
	lines = append(lines, "n", "y", "y")

	err := run(context.Background(), testConfig(srv.URL), "", script(lines...), &out, logging.NewWithWriter("error", io.Discard), fixedClock())
	require.True(t, errors.Is(err, io.EOF), "expected EOF, got %v", err)
	assert.Contains(t, out.String(), booking.MsgAgreeToTerms)
	assert.Empty(t, calls())
}

func TestRun_BackReturnsToScheduling(t *testing.T) {
	srv, calls := newMeetingServer(t)
	var out bytes.Buffer

	lines := []string{"", "2025-06-02", "3", ":back", "", "", "5"}
	lines = append(lines, detailAnswers...)
	lines = append(lines, "y", "y", "y")

	err := run(context.Background(), testConfig(srv.URL), "", script(lines...), &out, logging.NewWithWriter("error", io.Discard), fixedClock())
	require.NoError(t, err)
	require.Len(t, calls(), 1)
	assert.Equal(t, "11:30am", calls()[0].body["startTime"])
}

func TestRun_Reschedule(t *testing.T) {
	srv, calls := newMeetingServer(t)
	path := filepath.Join(t.TempDir(), "meeting.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"_id": "m-42",
		"title": "Strategy Call",
		"guestName": "Asha",
		"guestEmail": "asha@example.com",
		"guestPhone": "+91 90000 00000",
		"currentRevenue": "10k",
		"revenueGoal": "50k",
		"businessStruggle": "leads",
		"duration": 60
	}`), 0o600))

	var out bytes.Buffer
	lines := []string{"", "2025-06-03", "1"}
	lines = append(lines, "", "", "", "", "", "", "", "", "")
	lines = append(lines, "y", "y", "y")

	err := run(context.Background(), testConfig(srv.URL), path, script(lines...), &out, logging.NewWithWriter("error", io.Discard), fixedClock())
	require.NoError(t, err)

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/api/meetings/m-42", got[0].path)
	assert.Equal(t, "Strategy Call", got[0].body["title"])
	assert.Contains(t, out.String(), booking.MsgRescheduled)
}

func TestRun_DryRun(t *testing.T) {
	srv, calls := newMeetingServer(t)
	cfg := testConfig(srv.URL)
	cfg.MeetingAPIDryRun = true
	var out bytes.Buffer

	lines := []string{"", "2025-06-02", "3"}
	lines = append(lines, detailAnswers...)
	lines = append(lines, "y", "y", "y")

	err := run(context.Background(), cfg, "", script(lines...), &out, logging.NewWithWriter("error", io.Discard), fixedClock())
	require.NoError(t, err)
	assert.Empty(t, calls())
	assert.Contains(t, out.String(), "Meeting ID: dry-run-")
}

func TestLoadEntry(t *testing.T) {
	entry, err := loadEntry("")
	require.NoError(t, err)
	assert.Equal(t, booking.ModeCreate, entry.Mode())

	_, err = loadEntry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = loadEntry(bad)
	assert.Error(t, err)
}
