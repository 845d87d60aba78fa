// Package booking holds the consultation booking wizard: the draft store, the
// step checks, the step sequencer and the submission flow around a remote
// meeting API.
package booking

import "context"

// Mode selects between allocating a new meeting and moving an existing one.
type Mode string

const (
	ModeCreate     Mode = "create"
	ModeReschedule Mode = "reschedule"
)

// SuccessNotice is the message shown after a successful submission in mode.
func SuccessNotice(mode Mode) string {
	if mode == ModeReschedule {
		return MsgRescheduled
	}
	return MsgCreated
}

// SubmitRequest is what the wizard hands to a Submitter once every local
// check has passed.
type SubmitRequest struct {
	Mode      Mode
	Draft     MeetingDraft
	Selection Selection
}

// Submitter sends a meeting to the remote booking API.
type Submitter interface {
	// Submit creates or reschedules the meeting. Failures are reported as
	// *TransportError; the caller keeps its draft so the user can retry.
	Submit(ctx context.Context, req SubmitRequest) (*SubmittedMeeting, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, req SubmitRequest) (*SubmittedMeeting, error)

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, req SubmitRequest) (*SubmittedMeeting, error) {
	return f(ctx, req)
}
