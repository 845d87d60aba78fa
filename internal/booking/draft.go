package booking

import "time"

const (
	// DefaultTitle is the title a fresh draft starts with.
	DefaultTitle = "Consultation Call"
	// DefaultDuration is used when a draft carries no duration.
	DefaultDuration = 30
)

// Guest is an extra attendee. The wizard never collects these, but the
// remote API accepts the list so it is carried on the wire.
type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MeetingDraft is the consultation request built up across the wizard steps.
// Field names follow the remote meeting API.
type MeetingDraft struct {
	// ID is only set when the draft came from an existing meeting being rescheduled.
	ID          string     `json:"_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        *time.Time `json:"date"`
	StartTime   string     `json:"startTime"`
	Duration    int        `json:"duration"`

	GuestName        string  `json:"guestName"`
	GuestEmail       string  `json:"guestEmail"`
	GuestPhone       string  `json:"guestPhone"`
	AdditionalGuests []Guest `json:"additionalGuests"`

	CurrentRevenue   string `json:"currentRevenue"`
	RevenueGoal      string `json:"revenueGoal"`
	BusinessStruggle string `json:"businessStruggle"`

	ConfirmAttendance bool    `json:"confirmAttendance"`
	AgreedToTerms     bool    `json:"agreedToTerms"`
	Organizer         *string `json:"organizer"`
}

// NewDraft returns a draft populated with defaults. The organizer is read once
// from the session user; a missing user leaves it null.
func NewDraft(user SessionUser) MeetingDraft {
	d := MeetingDraft{
		Title:            DefaultTitle,
		Duration:         DefaultDuration,
		AdditionalGuests: []Guest{},
	}
	if user != nil {
		if id, ok := user.UserID(); ok && id != "" {
			d.Organizer = &id
		}
	}
	return d
}

// Clone returns a deep copy so callers never share slices or pointers with the store.
func (d MeetingDraft) Clone() MeetingDraft {
	out := d
	if d.Date != nil {
		date := *d.Date
		out.Date = &date
	}
	if d.Organizer != nil {
		org := *d.Organizer
		out.Organizer = &org
	}
	if d.AdditionalGuests != nil {
		out.AdditionalGuests = append([]Guest(nil), d.AdditionalGuests...)
		if out.AdditionalGuests == nil {
			out.AdditionalGuests = []Guest{}
		}
	}
	return out
}

// Selection is the date and slot picked on the scheduling step, plus the
// display timezone. The timezone never leaves the wizard.
type Selection struct {
	Date      *time.Time `json:"date,omitempty"`
	StartTime string     `json:"startTime,omitempty"`
	Timezone  string     `json:"timezone,omitempty"`
}

// Complete reports whether both a date and a start time are chosen.
func (s Selection) Complete() bool {
	return s.Date != nil && s.StartTime != ""
}

func (s Selection) clone() Selection {
	out := s
	if s.Date != nil {
		date := *s.Date
		out.Date = &date
	}
	return out
}

// SubmittedMeeting is the payload that was accepted by the remote API along
// with the identifier it assigned. The confirmation view renders it.
type SubmittedMeeting struct {
	MeetingDraft
}

// CalendarDate truncates t to midnight UTC of its calendar day in t's location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
