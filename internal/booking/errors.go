package booking

import (
	"errors"
	"fmt"
	"strings"
)

// User-facing messages.
const (
	MsgSelectDateTime     = "Please select both date and time"
	MsgRequiredFields     = "Please fill in all required fields: "
	MsgAgreeToTerms       = "Please agree to the terms and conditions"
	MsgConfirmAttendance  = "Please confirm your attendance"
	MsgInvalidEmail       = "Please enter a valid email"
	MsgGenericFailure     = "An error occurred"
	MsgCreated            = "Meeting created successfully!"
	MsgRescheduled        = "Meeting rescheduled successfully!"
	UnknownMeetingID      = "N/A"
	msgUnknownSlot        = "Please choose one of the offered time slots"
	msgUnknownDuration    = "Please select duration"
	msgUnknownTimezone    = "Please choose one of the offered time zones"
	msgDateInPast         = "Please choose today or a later date"
	msgConfirmationIsLast = "Review your details and schedule the meeting"
	msgReadOnlyField      = "The organizer and meeting id cannot be changed"
)

var (
	// ErrSubmissionInFlight is returned when submit is triggered while a request is pending.
	ErrSubmissionInFlight = errors.New("booking: submission already in progress")
	// ErrNoNextStep is returned by Next on the last step.
	ErrNoNextStep = errors.New("booking: confirmation is the last step")
	// ErrNotAtConfirmation is returned when submitting from an earlier step.
	ErrNotAtConfirmation = errors.New("booking: submit is only available on the confirmation step")
	// ErrMissingMeetingID is returned when a reschedule draft has no _id.
	ErrMissingMeetingID = errors.New("booking: reschedule requires the existing meeting id")
	// ErrWizardCompleted is returned for any edit after a successful submission.
	ErrWizardCompleted = errors.New("booking: meeting already submitted")

	ErrUnknownSlot     = errors.New("booking: unknown time slot")
	ErrUnknownDuration = errors.New("booking: unknown duration")
	ErrUnknownTimezone = errors.New("booking: unknown timezone")
	ErrDateInPast      = errors.New("booking: date is before today")
	// ErrReadOnlyField is returned when an edit touches organizer or _id,
	// which are fixed when the wizard is entered.
	ErrReadOnlyField = errors.New("booking: field is read-only")
)

// ValidationError is a local, recoverable failure: missing fields, a missing
// date or time, or unchecked consent boxes.
type ValidationError struct {
	Step    Step
	Message string
	// Missing lists required field names in declaration order, when relevant.
	Missing []string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func missingFieldsError(step Step, missing []string) *ValidationError {
	return &ValidationError{
		Step:    step,
		Message: MsgRequiredFields + strings.Join(missing, ", "),
		Missing: missing,
	}
}

// TransportError is a failed submission: network failure, a non-success
// response, or a server-reported error. Message is safe to show to the user.
type TransportError struct {
	Message string
	// Status is the HTTP status code, zero when no response arrived.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage extracts the message a presentation layer should display for err.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Message
	}
	if err == nil {
		return ""
	}
	return MsgGenericFailure
}
