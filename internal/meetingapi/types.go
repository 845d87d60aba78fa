package meetingapi

import "github.com/wolfman30/consult-booking/internal/booking"

// Response is the body returned by both the create and update endpoints.
type Response struct {
	Success bool        `json:"success"`
	Meeting *MeetingRef `json:"meeting,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// MeetingRef carries the server-assigned identifier.
type MeetingRef struct {
	ID string `json:"_id"`
}

// BuildPayload merges the draft with the confirmed selection and fills
// defaults. Create payloads never carry an _id.
func BuildPayload(req booking.SubmitRequest) booking.MeetingDraft {
	payload := req.Draft.Clone()
	if req.Selection.Date != nil {
		date := *req.Selection.Date
		payload.Date = &date
	}
	if req.Selection.StartTime != "" {
		payload.StartTime = req.Selection.StartTime
	}
	if payload.Duration == 0 {
		payload.Duration = booking.DefaultDuration
	}
	if payload.AdditionalGuests == nil {
		payload.AdditionalGuests = []booking.Guest{}
	}
	if req.Mode != booking.ModeReschedule {
		payload.ID = ""
	}
	return payload
}
