package booking

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/consult-booking/pkg/logging"
)

// Entry is the optional navigation state a wizard is opened with. A
// reschedule entry carries the existing meeting as its draft.
type Entry struct {
	IsRescheduling bool          `json:"isRescheduling"`
	MeetingData    *MeetingDraft `json:"meetingData,omitempty"`
}

// Mode returns the mode fixed by this entry.
func (e Entry) Mode() Mode {
	if e.IsRescheduling && e.MeetingData != nil {
		return ModeReschedule
	}
	return ModeCreate
}

// Snapshot is the persisted form of a wizard between presentation events.
type Snapshot struct {
	Mode         Mode              `json:"mode"`
	Step         Step              `json:"step"`
	Draft        MeetingDraft      `json:"draft"`
	Selection    Selection         `json:"selection"`
	Pending      Patch             `json:"pending"`
	Confirmation *SubmittedMeeting `json:"confirmation,omitempty"`
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithClock overrides the clock used to reject past dates.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets the wizard logger.
func WithLogger(logger *logging.Logger) Option {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDefaultTimezone preselects a display timezone for new wizards.
func WithDefaultTimezone(tz string) Option {
	return func(w *Wizard) {
		if IsTimezone(tz) {
			w.defaultTZ = tz
		}
	}
}

// Wizard ties the store, the details widget and the sequencer together and
// owns the submission busy flag. All methods are safe for concurrent use;
// every read-modify-write happens under one lock hold.
type Wizard struct {
	mu        sync.Mutex
	mode      Mode
	store     *Store
	form      DetailsForm
	seq       *Sequencer
	busy      bool
	submitted *SubmittedMeeting

	submitter Submitter
	logger    *logging.Logger
	now       func() time.Time
	defaultTZ string
}

// NewWizard opens a wizard. Without a reschedule entry the draft starts from
// defaults with the organizer taken from user.
func NewWizard(entry Entry, user SessionUser, submitter Submitter, opts ...Option) *Wizard {
	w := newWizard(submitter, opts...)
	w.mode = entry.Mode()
	if w.mode == ModeReschedule {
		w.store = NewStoreFromDraft(*entry.MeetingData)
	} else {
		w.store = NewStore(user)
	}
	w.store.selection.Timezone = w.defaultTZ
	return w
}

// Restore rebuilds a wizard from a snapshot.
func Restore(snap Snapshot, submitter Submitter, opts ...Option) *Wizard {
	w := newWizard(submitter, opts...)
	w.mode = snap.Mode
	if w.mode != ModeReschedule {
		w.mode = ModeCreate
	}
	w.store = NewStoreFromDraft(snap.Draft)
	w.store.setSelection(snap.Selection)
	if w.store.selection.Timezone == "" {
		w.store.selection.Timezone = w.defaultTZ
	}
	w.form.pending = snap.Pending
	w.seq.restore(snap.Step)
	if snap.Confirmation != nil {
		c := SubmittedMeeting{MeetingDraft: snap.Confirmation.MeetingDraft.Clone()}
		w.submitted = &c
	}
	return w
}

func newWizard(submitter Submitter, opts ...Option) *Wizard {
	if submitter == nil {
		panic("booking: submitter required")
	}
	w := &Wizard{
		seq:       NewSequencer(),
		submitter: submitter,
		logger:    logging.Default(),
		now:       time.Now,
		defaultTZ: DefaultTimezone,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Snapshot captures the wizard for persistence.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{
		Mode:      w.mode,
		Step:      w.seq.Current(),
		Draft:     w.store.Get(),
		Selection: w.store.Selection(),
		Pending:   w.form.Pending(),
	}
	if w.submitted != nil {
		c := SubmittedMeeting{MeetingDraft: w.submitted.MeetingDraft.Clone()}
		snap.Confirmation = &c
	}
	return snap
}

// Mode returns the mode fixed at entry.
func (w *Wizard) Mode() Mode {
	return w.mode
}

// Step returns the active step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq.Current()
}

// Draft returns a copy of the shared draft. Unsynced widget edits are not included.
func (w *Wizard) Draft() MeetingDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Get()
}

// Selection returns a copy of the scheduling selection.
func (w *Wizard) Selection() Selection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Selection()
}

// Busy reports whether a submission is in flight.
func (w *Wizard) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Confirmation returns the submitted meeting once submission has succeeded.
func (w *Wizard) Confirmation() (*SubmittedMeeting, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted == nil {
		return nil, false
	}
	c := SubmittedMeeting{MeetingDraft: w.submitted.MeetingDraft.Clone()}
	return &c, true
}

// HasNext reports whether a forward move is offered on the current step.
func (w *Wizard) HasNext() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq.HasNext()
}

// HasPrev reports whether a backward move is possible.
func (w *Wizard) HasPrev() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq.HasPrev()
}

// mutable must be called with mu held.
func (w *Wizard) mutable() error {
	if w.submitted != nil {
		return ErrWizardCompleted
	}
	if w.busy {
		return ErrSubmissionInFlight
	}
	return nil
}

// SelectDate picks the calendar day. Days before today, in the selected
// timezone, are rejected.
func (w *Wizard) SelectDate(date time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	sel := w.store.Selection()
	day := CalendarDate(date)
	if day.Before(CalendarDate(w.now().In(location(sel.Timezone)))) {
		return &ValidationError{Step: StepScheduling, Message: msgDateInPast, Err: ErrDateInPast}
	}
	sel.Date = &day
	w.store.setSelection(sel)
	w.store.Merge(Patch{Date: &day})
	return nil
}

// SelectTime picks one of the offered slots.
func (w *Wizard) SelectTime(slot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	if !IsTimeSlot(slot) {
		return &ValidationError{Step: StepScheduling, Message: msgUnknownSlot, Err: ErrUnknownSlot}
	}
	sel := w.store.Selection()
	sel.StartTime = slot
	w.store.setSelection(sel)
	w.store.Merge(Patch{StartTime: &slot})
	return nil
}

// SelectTimezone changes the display timezone.
func (w *Wizard) SelectTimezone(tz string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	if !IsTimezone(tz) {
		return &ValidationError{Step: StepScheduling, Message: msgUnknownTimezone, Err: ErrUnknownTimezone}
	}
	sel := w.store.Selection()
	sel.Timezone = tz
	w.store.setSelection(sel)
	return nil
}

// Update applies direct field edits to the shared draft.
func (w *Wizard) Update(p Patch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	if err := checkPatch(p); err != nil {
		return err
	}
	w.store.Merge(p)
	return nil
}

// EditForm records edits in the details widget. They reach the draft on the
// next sync, which Next and Submit perform before checking anything. The
// widget rules run against the touched fields only.
func (w *Wizard) EditForm(p Patch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	if err := checkPatch(p); err != nil {
		return err
	}
	w.form.Edit(p)
	// The edit is kept either way; field errors are reported like the widget would.
	if fields := p.ruleFields(); len(fields) > 0 {
		return w.form.Validate(w.store.Get(), fields...)
	}
	return nil
}

// PendingForm returns widget edits not yet synced.
func (w *Wizard) PendingForm() Patch {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form.Pending()
}

// SyncForm commits widget edits into the draft.
func (w *Wizard) SyncForm() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mutable() != nil {
		return false
	}
	return w.form.Sync(w.store)
}

// Next syncs the widget and advances if the current step's check passes.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	from := w.seq.Current()
	if from == StepDetails {
		w.form.Sync(w.store)
	}
	if err := w.seq.Next(w.store.Get(), w.store.Selection()); err != nil {
		w.logger.Debug("booking: step blocked", "step", from.String(), "error", err)
		return err
	}
	w.logger.Debug("booking: step advanced", "from", from.String(), "to", w.seq.Current().String())
	return nil
}

// Prev moves back one step without validating. It reports whether it moved.
func (w *Wizard) Prev() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mutable() != nil {
		return false
	}
	return w.seq.Prev()
}

// Submit runs the full local check and hands the meeting to the Submitter.
// Only one submission may be in flight; the draft is kept intact on failure
// and discarded on success in favour of the returned snapshot.
func (w *Wizard) Submit(ctx context.Context) (*SubmittedMeeting, error) {
	w.mu.Lock()
	if err := w.mutable(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.seq.Current() != StepConfirmation {
		w.mu.Unlock()
		return nil, ErrNotAtConfirmation
	}
	w.form.Sync(w.store)
	req := SubmitRequest{Mode: w.mode, Draft: w.store.Get(), Selection: w.store.Selection()}
	if err := CheckSubmission(req.Draft, req.Selection); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if req.Mode == ModeReschedule && req.Draft.ID == "" {
		w.mu.Unlock()
		return nil, ErrMissingMeetingID
	}
	w.busy = true
	w.mu.Unlock()

	result, err := w.submitter.Submit(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if err != nil {
		w.logger.Warn("booking: submission failed", "mode", string(req.Mode), "error", err)
		return nil, err
	}
	if result == nil {
		return nil, &TransportError{Message: MsgGenericFailure}
	}
	snapshot := SubmittedMeeting{MeetingDraft: result.MeetingDraft.Clone()}
	w.submitted = &snapshot
	w.store = NewStoreFromDraft(MeetingDraft{})
	w.form = DetailsForm{}
	w.logger.Info("booking: meeting submitted", "mode", string(req.Mode), "meeting_id", snapshot.ID)
	out := SubmittedMeeting{MeetingDraft: snapshot.MeetingDraft.Clone()}
	return &out, nil
}

func checkPatch(p Patch) error {
	var fixed []string
	if p.ID != nil {
		fixed = append(fixed, "_id")
	}
	if p.Organizer != nil {
		fixed = append(fixed, "organizer")
	}
	if len(fixed) > 0 {
		return &ValidationError{Step: StepDetails, Message: msgReadOnlyField, Missing: fixed, Err: ErrReadOnlyField}
	}
	if p.Duration != nil && !IsDuration(*p.Duration) {
		return &ValidationError{Step: StepDetails, Message: msgUnknownDuration, Missing: []string{"duration"}, Err: ErrUnknownDuration}
	}
	if p.StartTime != nil && *p.StartTime != "" && !IsTimeSlot(*p.StartTime) {
		return &ValidationError{Step: StepScheduling, Message: msgUnknownSlot, Err: ErrUnknownSlot}
	}
	return nil
}

func location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
