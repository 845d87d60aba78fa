package confirmation

import (
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/consult-booking/internal/booking"
)

func sampleMeeting() booking.SubmittedMeeting {
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	return booking.SubmittedMeeting{MeetingDraft: booking.MeetingDraft{
		ID:             "abc123",
		Title:          "Consultation Call",
		Date:           &date,
		StartTime:      "10:30am",
		Duration:       45,
		GuestName:      "Asha",
		GuestEmail:     "asha@example.com",
		GuestPhone:     "+91 90000 00000",
		CurrentRevenue: "10k",
		RevenueGoal:    "50k",
	}}
}

func TestBuild(t *testing.T) {
	v := Build(sampleMeeting(), booking.ModeCreate)
	if v.Date != "Monday, June 2, 2025" {
		t.Fatalf("date = %q", v.Date)
	}
	if v.Duration != "45 minutes" {
		t.Fatalf("duration = %q", v.Duration)
	}
	if v.Notice != booking.MsgCreated {
		t.Fatalf("notice = %q", v.Notice)
	}
	if len(v.WhatNext) != 3 || len(v.ImportantInfo) != 2 {
		t.Fatalf("unexpected sections: %d/%d", len(v.WhatNext), len(v.ImportantInfo))
	}
	if Build(sampleMeeting(), booking.ModeReschedule).Notice != booking.MsgRescheduled {
		t.Fatal("reschedule notice mismatch")
	}
}

func TestBuild_MissingIDAndDate(t *testing.T) {
	m := sampleMeeting()
	m.ID = ""
	m.Date = nil
	v := Build(m, booking.ModeCreate)
	if v.MeetingID != booking.UnknownMeetingID {
		t.Fatalf("meeting id = %q", v.MeetingID)
	}
	if v.Date != "" {
		t.Fatalf("date = %q, want empty", v.Date)
	}
}

func TestRenderer_Render(t *testing.T) {
	out, err := NewRenderer().Render(Build(sampleMeeting(), booking.ModeCreate))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Thank You for Scheduling!",
		"Date:     Monday, June 2, 2025",
		"Time:     10:30am",
		"* Email Reminders:",
		"- Find a quiet environment for the consultation",
		"Meeting ID: abc123",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Additional Notes") {
		t.Fatal("notes section should be omitted without a description")
	}

	m := sampleMeeting()
	m.Description = "Bring last quarter numbers"
	out, err = NewRenderer().Render(Build(m, booking.ModeCreate))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Bring last quarter numbers") {
		t.Fatal("expected notes in output")
	}
}

func TestNewRendererFromText_Errors(t *testing.T) {
	if _, err := NewRendererFromText(""); err == nil {
		t.Fatal("expected error for empty template")
	}
	r, err := NewRendererFromText("{{.Missing}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := r.Render(View{}); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
