package booking

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// requiredFields is the declaration order used when reporting missing fields.
var requiredFields = []struct {
	name string
	get  func(MeetingDraft) string
}{
	{"title", func(d MeetingDraft) string { return d.Title }},
	{"guestName", func(d MeetingDraft) string { return d.GuestName }},
	{"guestEmail", func(d MeetingDraft) string { return d.GuestEmail }},
	{"guestPhone", func(d MeetingDraft) string { return d.GuestPhone }},
	{"currentRevenue", func(d MeetingDraft) string { return d.CurrentRevenue }},
	{"revenueGoal", func(d MeetingDraft) string { return d.RevenueGoal }},
	{"businessStruggle", func(d MeetingDraft) string { return d.BusinessStruggle }},
}

// RequiredFields returns the names of the fields that must be filled in.
func RequiredFields() []string {
	out := make([]string, 0, len(requiredFields))
	for _, f := range requiredFields {
		out = append(out, f.name)
	}
	return out
}

// MissingRequired lists empty required fields in declaration order.
func MissingRequired(d MeetingDraft) []string {
	var missing []string
	for _, f := range requiredFields {
		if f.get(d) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Verdict is the outcome of a forward-step check.
type Verdict struct {
	OK      bool
	Missing []string
	Message string
}

func (v Verdict) err(step Step) error {
	if v.OK {
		return nil
	}
	return &ValidationError{Step: step, Message: v.Message, Missing: v.Missing}
}

// CanAdvance decides whether the wizard may leave step. The details step
// assumes the widget has already been synced into d.
func CanAdvance(step Step, d MeetingDraft, sel Selection) Verdict {
	switch step {
	case StepScheduling:
		return checkSchedule(d, sel)
	case StepDetails:
		return checkDetails(d, sel)
	default:
		return Verdict{Message: msgConfirmationIsLast}
	}
}

func checkSchedule(_ MeetingDraft, sel Selection) Verdict {
	if !sel.Complete() {
		return Verdict{Message: MsgSelectDateTime}
	}
	return Verdict{OK: true}
}

func checkDetails(d MeetingDraft, _ Selection) Verdict {
	if missing := MissingRequired(d); len(missing) > 0 {
		return Verdict{Missing: missing, Message: MsgRequiredFields + strings.Join(missing, ", ")}
	}
	return Verdict{OK: true}
}

var validate = validator.New()

// IsEmail reports whether s has the shape of an email address.
func IsEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// CheckSubmission is the full pre-submission check: consent boxes, required
// fields, email shape and the scheduling selection, in that order.
func CheckSubmission(d MeetingDraft, sel Selection) error {
	if !d.AgreedToTerms {
		return &ValidationError{Step: StepConfirmation, Message: MsgAgreeToTerms}
	}
	if !d.ConfirmAttendance {
		return &ValidationError{Step: StepConfirmation, Message: MsgConfirmAttendance}
	}
	if missing := MissingRequired(d); len(missing) > 0 {
		return missingFieldsError(StepConfirmation, missing)
	}
	if !IsEmail(d.GuestEmail) {
		return &ValidationError{Step: StepConfirmation, Message: MsgInvalidEmail, Missing: []string{"guestEmail"}}
	}
	if !sel.Complete() {
		return &ValidationError{Step: StepConfirmation, Message: MsgSelectDateTime}
	}
	return nil
}
