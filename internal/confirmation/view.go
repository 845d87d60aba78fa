// Package confirmation builds the thank-you view shown after a meeting is
// accepted, as structured data and as plain text.
package confirmation

import (
	"strconv"

	"github.com/wolfman30/consult-booking/internal/booking"
)

const dateLayout = "Monday, January 2, 2006"

// Step is one "what happens next" entry.
type Step struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notice is a titled list of reminders.
type Notice struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

var whatNext = []Step{
	{"Email Confirmation", "You'll receive a detailed confirmation email with meeting details and preparation tips."},
	{"Email Reminders", "We'll send you email reminders 24 hours before your scheduled call."},
	{"Expert Consultation", "Our business experts will call you at the scheduled time to discuss your goals."},
}

var importantInfo = []Notice{
	{
		Title: "Call Preparation",
		Items: []string{
			"Please join the call 5 minutes before the scheduled time",
			"Ensure you have a stable internet connection",
			"Have your questions and business challenges ready",
			"Find a quiet environment for the consultation",
		},
	},
	{
		Title: "Communication",
		Items: []string{
			"Check your email for the meeting link and details",
			"If you need to reschedule, contact us at least 24 hours in advance",
			"For urgent changes, call us at +1 (234) 567-890",
		},
	},
}

// View is everything the thank-you page displays.
type View struct {
	Headline  string `json:"headline"`
	Subline   string `json:"subline"`
	Notice    string `json:"notice"`
	MeetingID string `json:"meetingId"`

	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration string `json:"duration"`

	GuestName  string `json:"guestName"`
	GuestEmail string `json:"guestEmail"`
	GuestPhone string `json:"guestPhone"`

	CurrentRevenue string `json:"currentRevenue"`
	RevenueGoal    string `json:"revenueGoal"`
	Notes          string `json:"notes,omitempty"`

	WhatNext      []Step   `json:"whatNext"`
	ImportantInfo []Notice `json:"importantInfo"`
}

// Build assembles the view for a submitted meeting.
func Build(m booking.SubmittedMeeting, mode booking.Mode) View {
	v := View{
		Headline:       "Thank You for Scheduling!",
		Subline:        "Your consultation call has been successfully scheduled. We're excited to help you achieve your business goals!",
		Notice:         booking.SuccessNotice(mode),
		MeetingID:      m.ID,
		Title:          m.Title,
		Date:           FormatDate(m.MeetingDraft),
		Time:           m.StartTime,
		Duration:       strconv.Itoa(m.Duration) + " minutes",
		GuestName:      m.GuestName,
		GuestEmail:     m.GuestEmail,
		GuestPhone:     m.GuestPhone,
		CurrentRevenue: m.CurrentRevenue,
		RevenueGoal:    m.RevenueGoal,
		Notes:          m.Description,
		WhatNext:       append([]Step(nil), whatNext...),
		ImportantInfo:  append([]Notice(nil), importantInfo...),
	}
	if v.MeetingID == "" {
		v.MeetingID = booking.UnknownMeetingID
	}
	return v
}

// FormatDate renders the meeting's calendar day in long form, or "" when unset.
func FormatDate(d booking.MeetingDraft) string {
	if d.Date == nil {
		return ""
	}
	return d.Date.UTC().Format(dateLayout)
}
