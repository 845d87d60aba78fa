package booking

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// DetailsForm holds edits made in the details step's own widget. They stay
// invisible to the Store until Sync copies them across.
type DetailsForm struct {
	pending Patch
}

// Edit records widget edits; later values for the same field win.
func (f *DetailsForm) Edit(p Patch) {
	f.pending = f.pending.Overlay(p)
}

// Pending returns the edits that have not been synced yet.
func (f *DetailsForm) Pending() Patch {
	return f.pending
}

// Dirty reports whether there is anything to sync.
func (f *DetailsForm) Dirty() bool {
	return !f.pending.IsEmpty()
}

// Sync commits pending edits into s and clears them. It reports whether
// anything was copied.
func (f *DetailsForm) Sync(s *Store) bool {
	if !f.Dirty() {
		return false
	}
	s.Merge(f.pending)
	f.pending = Patch{}
	return true
}

// detailsRules mirrors the widget's field rules.
type detailsRules struct {
	Title            string `validate:"required"`
	Duration         int    `validate:"required,oneof=15 30 45 60"`
	GuestName        string `validate:"required"`
	GuestEmail       string `validate:"required,email"`
	GuestPhone       string `validate:"required"`
	CurrentRevenue   string `validate:"required"`
	RevenueGoal      string `validate:"required"`
	BusinessStruggle string `validate:"required"`
}

var ruleMessages = map[string]string{
	"Title.required":            "Please enter meeting title",
	"Duration.required":         "Please select duration",
	"Duration.oneof":            "Please select duration",
	"GuestName.required":        "Please enter your name",
	"GuestEmail.required":       "Please enter your email",
	"GuestEmail.email":          MsgInvalidEmail,
	"GuestPhone.required":       "Please enter your phone number",
	"CurrentRevenue.required":   "Please enter current revenue",
	"RevenueGoal.required":      "Please enter revenue goal",
	"BusinessStruggle.required": "Please describe your business challenges",
}

var ruleFieldNames = map[string]string{
	"Title":            "title",
	"Duration":         "duration",
	"GuestName":        "guestName",
	"GuestEmail":       "guestEmail",
	"GuestPhone":       "guestPhone",
	"CurrentRevenue":   "currentRevenue",
	"RevenueGoal":      "revenueGoal",
	"BusinessStruggle": "businessStruggle",
}

// ruleFields names the detailsRules fields set in p.
func (p Patch) ruleFields() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.Title != nil, "Title")
	add(p.Duration != nil, "Duration")
	add(p.GuestName != nil, "GuestName")
	add(p.GuestEmail != nil, "GuestEmail")
	add(p.GuestPhone != nil, "GuestPhone")
	add(p.CurrentRevenue != nil, "CurrentRevenue")
	add(p.RevenueGoal != nil, "RevenueGoal")
	add(p.BusinessStruggle != nil, "BusinessStruggle")
	return out
}

// Validate applies the widget rules to d overlaid with the pending edits.
// With only set, just those rule fields are checked. The first failing rule
// supplies the message; Missing lists every failing field.
func (f *DetailsForm) Validate(d MeetingDraft, only ...string) error {
	f.pending.applyTo(&d)
	rules := detailsRules{
		Title:            d.Title,
		Duration:         d.Duration,
		GuestName:        d.GuestName,
		GuestEmail:       d.GuestEmail,
		GuestPhone:       d.GuestPhone,
		CurrentRevenue:   d.CurrentRevenue,
		RevenueGoal:      d.RevenueGoal,
		BusinessStruggle: d.BusinessStruggle,
	}
	var err error
	if len(only) > 0 {
		err = validate.StructPartial(rules, only...)
	} else {
		err = validate.Struct(rules)
	}
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Step: StepDetails, Message: MsgGenericFailure, Err: err}
	}
	out := &ValidationError{Step: StepDetails}
	for _, fe := range fieldErrs {
		out.Missing = append(out.Missing, ruleFieldNames[fe.Field()])
		if out.Message == "" {
			out.Message = ruleMessages[fe.Field()+"."+fe.Tag()]
		}
	}
	if out.Message == "" {
		out.Message = MsgGenericFailure
	}
	return out
}
