package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/consult-booking/internal/booking"
	"github.com/wolfman30/consult-booking/internal/confirmation"
)

const backCommand = ":back"

var errBack = errors.New("back")

// terminal drives a wizard over a line-oriented reader and writer.
type terminal struct {
	wiz      *booking.Wizard
	in       *bufio.Scanner
	out      io.Writer
	renderer *confirmation.Renderer
}

func newTerminal(wiz *booking.Wizard, in io.Reader, out io.Writer) *terminal {
	return &terminal{
		wiz:      wiz,
		in:       bufio.NewScanner(in),
		out:      out,
		renderer: confirmation.NewRenderer(),
	}
}

// run walks the steps until a meeting is accepted or input ends.
func (t *terminal) run(ctx context.Context) (*booking.SubmittedMeeting, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := t.wiz.Step()
		t.header(step)

		var err error
		switch step {
		case booking.StepScheduling:
			err = t.schedule()
		case booking.StepDetails:
			err = t.details()
		case booking.StepConfirmation:
			var meeting *booking.SubmittedMeeting
			meeting, err = t.confirm(ctx)
			if err == nil && meeting != nil {
				return meeting, t.thankYou(*meeting)
			}
		}
		switch {
		case errors.Is(err, errBack):
			t.wiz.Prev()
		case errors.Is(err, io.EOF):
			return nil, err
		case err != nil:
			fmt.Fprintf(t.out, "! %s\n", booking.UserMessage(err))
		}
	}
}

func (t *terminal) header(step booking.Step) {
	for _, info := range booking.Steps() {
		if info.Step == step {
			fmt.Fprintf(t.out, "\n== %s (%d%%) ==\n%s\n", info.Title, booking.Progress(step), info.Description)
		}
	}
	if t.wiz.Mode() == booking.ModeReschedule {
		fmt.Fprintln(t.out, "Rescheduling an existing meeting.")
	}
	if t.wiz.HasPrev() {
		fmt.Fprintf(t.out, "(type %s to return to the previous step)\n", backCommand)
	}
}

func (t *terminal) schedule() error {
	sel := t.wiz.Selection()

	fmt.Fprintln(t.out, "Time zones:")
	for i, tz := range booking.Timezones {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, tz.Label)
	}
	tz, err := choose(t, "Time zone", booking.Timezones, sel.Timezone, func(z booking.Timezone) string { return z.Value })
	if err != nil {
		return err
	}
	if tz.Value != "" {
		if err := t.wiz.SelectTimezone(tz.Value); err != nil {
			return err
		}
	}

	current := ""
	if sel.Date != nil {
		current = sel.Date.Format("2006-01-02")
	}
	raw, err := t.ask("Date (YYYY-MM-DD)", current)
	if err != nil {
		return err
	}
	if raw != "" {
		date, perr := time.Parse("2006-01-02", raw)
		if perr != nil {
			return &booking.ValidationError{Step: booking.StepScheduling, Message: "Please enter the date as YYYY-MM-DD"}
		}
		if err := t.wiz.SelectDate(date); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.out, "Available time slots:")
	for i, slot := range booking.TimeSlots {
		fmt.Fprintf(t.out, "  %2d) %s\n", i+1, slot)
	}
	slot, err := choose(t, "Time slot", booking.TimeSlots, sel.StartTime, func(s string) string { return s })
	if err != nil {
		return err
	}
	if slot != "" {
		if err := t.wiz.SelectTime(slot); err != nil {
			return err
		}
	}
	return t.wiz.Next()
}

type detailField struct {
	label string
	get   func(booking.MeetingDraft) string
	set   func(*booking.Patch, string)
}

var detailFields = []detailField{
	{"Meeting title", func(d booking.MeetingDraft) string { return d.Title }, func(p *booking.Patch, v string) { p.Title = &v }},
	{"Your name", func(d booking.MeetingDraft) string { return d.GuestName }, func(p *booking.Patch, v string) { p.GuestName = &v }},
	{"Email", func(d booking.MeetingDraft) string { return d.GuestEmail }, func(p *booking.Patch, v string) { p.GuestEmail = &v }},
	{"Phone", func(d booking.MeetingDraft) string { return d.GuestPhone }, func(p *booking.Patch, v string) { p.GuestPhone = &v }},
	{"Current revenue", func(d booking.MeetingDraft) string { return d.CurrentRevenue }, func(p *booking.Patch, v string) { p.CurrentRevenue = &v }},
	{"Revenue goal", func(d booking.MeetingDraft) string { return d.RevenueGoal }, func(p *booking.Patch, v string) { p.RevenueGoal = &v }},
	{"Biggest business challenge", func(d booking.MeetingDraft) string { return d.BusinessStruggle }, func(p *booking.Patch, v string) { p.BusinessStruggle = &v }},
	{"Notes (optional)", func(d booking.MeetingDraft) string { return d.Description }, func(p *booking.Patch, v string) { p.Description = &v }},
}

func (t *terminal) details() error {
	draft := t.wiz.Draft()
	var p booking.Patch
	for _, f := range detailFields {
		val, err := t.ask(f.label, f.get(draft))
		if err != nil {
			return err
		}
		f.set(&p, val)
	}
	if err := t.wiz.EditForm(p); err != nil {
		return err
	}
	// keep answers across a re-prompt of this step
	t.wiz.SyncForm()

	durations := make([]string, len(booking.Durations))
	for i, d := range booking.Durations {
		durations[i] = strconv.Itoa(d)
	}
	fmt.Fprintf(t.out, "Durations (minutes): %s\n", strings.Join(durations, ", "))
	raw, err := t.ask("Duration", strconv.Itoa(draft.Duration))
	if err != nil {
		return err
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		minutes = 0
	}
	if err := t.wiz.EditForm(booking.Patch{Duration: &minutes}); err != nil {
		return err
	}
	return t.wiz.Next()
}

func (t *terminal) confirm(ctx context.Context) (*booking.SubmittedMeeting, error) {
	d := t.wiz.Draft()
	fmt.Fprintf(t.out, "  %s on %s at %s (%d minutes)\n", d.Title, confirmation.FormatDate(d), d.StartTime, d.Duration)
	fmt.Fprintf(t.out, "  %s <%s> %s\n", d.GuestName, d.GuestEmail, d.GuestPhone)

	terms, err := t.yesNo("I agree to the terms and conditions", d.AgreedToTerms)
	if err != nil {
		return nil, err
	}
	attend, err := t.yesNo("I confirm I will attend the call", d.ConfirmAttendance)
	if err != nil {
		return nil, err
	}
	if err := t.wiz.Update(booking.Patch{AgreedToTerms: &terms, ConfirmAttendance: &attend}); err != nil {
		return nil, err
	}

	label := "Schedule meeting"
	if t.wiz.Mode() == booking.ModeReschedule {
		label = "Reschedule meeting"
	}
	ok, err := t.yesNo(label, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errBack
	}
	fmt.Fprintln(t.out, "Scheduling...")
	meeting, err := t.wiz.Submit(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(t.out, booking.SuccessNotice(t.wiz.Mode()))
	return meeting, nil
}

func (t *terminal) thankYou(m booking.SubmittedMeeting) error {
	text, err := t.renderer.Render(confirmation.Build(m, t.wiz.Mode()))
	if err != nil {
		return err
	}
	_, err = io.WriteString(t.out, "\n"+text)
	return err
}

// ask prompts for a line. An empty answer keeps current.
func (t *terminal) ask(label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(t.out, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(t.out, "%s: ", label)
	}
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	line := strings.TrimSpace(t.in.Text())
	if line == backCommand {
		return "", errBack
	}
	if line == "" {
		return current, nil
	}
	return line, nil
}

func (t *terminal) yesNo(label string, current bool) (bool, error) {
	def := "n"
	if current {
		def = "y"
	}
	raw, err := t.ask(label+" (y/n)", def)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(raw) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// choose accepts a 1-based index or a literal value. An empty answer keeps
// current, which may be the zero value.
func choose[T any](t *terminal, label string, options []T, current string, key func(T) string) (T, error) {
	var zero T
	raw, err := t.ask(label, current)
	if err != nil {
		return zero, err
	}
	if raw == "" {
		return zero, nil
	}
	if n, perr := strconv.Atoi(raw); perr == nil && n >= 1 && n <= len(options) {
		return options[n-1], nil
	}
	for _, opt := range options {
		if key(opt) == raw {
			return opt, nil
		}
	}
	return zero, &booking.ValidationError{Step: booking.StepScheduling, Message: fmt.Sprintf("Please pick %s from the list", strings.ToLower(label))}
}
