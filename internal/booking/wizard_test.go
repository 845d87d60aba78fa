package booking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }

type stubSubmitter struct {
	calls     atomic.Int32
	mu        sync.Mutex
	lastReq   SubmitRequest
	id        string
	err       error
	returnNil bool
	release   chan struct{}
	entered   chan struct{}
}

func (s *stubSubmitter) Submit(_ context.Context, req SubmitRequest) (*SubmittedMeeting, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastReq = req
	s.mu.Unlock()
	if s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.returnNil {
		return nil, nil
	}
	out := SubmittedMeeting{MeetingDraft: req.Draft.Clone()}
	out.ID = s.id
	return &out, nil
}

func newTestWizard(t *testing.T, sub Submitter) *Wizard {
	t.Helper()
	return NewWizard(Entry{}, staticUser{id: "user-1", ok: true}, sub, WithClock(fixedNow))
}

func fillDetails(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.EditForm(Patch{
		GuestName:        strPtr("Asha"),
		GuestEmail:       strPtr("asha@example.com"),
		GuestPhone:       strPtr("+91 90000 00000"),
		CurrentRevenue:   strPtr("10k"),
		RevenueGoal:      strPtr("50k"),
		BusinessStruggle: strPtr("leads"),
	}))
}

func driveToConfirmation(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.SelectDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, w.SelectTime("10:30am"))
	require.NoError(t, w.Next())
	fillDetails(t, w)
	require.NoError(t, w.Next())
	require.Equal(t, StepConfirmation, w.Step())
}

func agree(t *testing.T, w *Wizard) {
	t.Helper()
	yes := true
	require.NoError(t, w.Update(Patch{AgreedToTerms: &yes, ConfirmAttendance: &yes}))
}

func TestWizard_SchedulingRequiresDateAndTime(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})

	require.NoError(t, w.SelectDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	err := w.Next()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgSelectDateTime, verr.Message)
	assert.Equal(t, StepScheduling, w.Step())

	require.NoError(t, w.SelectTime("10:30am"))
	require.NoError(t, w.Next())
	assert.Equal(t, StepDetails, w.Step())
}

func TestWizard_SelectionMirrorsIntoDraft(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})
	require.NoError(t, w.SelectDate(time.Date(2025, 6, 3, 15, 0, 0, 0, time.UTC)))
	require.NoError(t, w.SelectTime("2:00pm"))

	d := w.Draft()
	require.NotNil(t, d.Date)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), *d.Date)
	assert.Equal(t, "2:00pm", d.StartTime)
	assert.Equal(t, DefaultTimezone, w.Selection().Timezone)
}

func TestWizard_RejectsUnknownChoices(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})

	assert.ErrorIs(t, w.SelectTime("1:30pm"), ErrUnknownSlot)
	assert.ErrorIs(t, w.SelectTimezone("Mars/Olympus"), ErrUnknownTimezone)
	assert.ErrorIs(t, w.SelectDate(time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)), ErrDateInPast)
	bad := 20
	assert.ErrorIs(t, w.Update(Patch{Duration: &bad}), ErrUnknownDuration)

	require.NoError(t, w.SelectTimezone("Asia/Tokyo"))
	assert.Equal(t, "Asia/Tokyo", w.Selection().Timezone)
}

func TestWizard_DetailsBlockedListsMissingInOrder(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})
	require.NoError(t, w.SelectDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, w.SelectTime("10:30am"))
	require.NoError(t, w.Next())

	require.NoError(t, w.EditForm(Patch{GuestName: strPtr("Asha"), RevenueGoal: strPtr("50k")}))
	err := w.Next()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"guestEmail", "guestPhone", "currentRevenue", "businessStruggle"}, verr.Missing)
	assert.Equal(t, StepDetails, w.Step())
	assert.Equal(t, "Asha", w.Draft().GuestName, "widget edits are synced even when blocked")
}

func TestWizard_WidgetEditsInvisibleUntilSync(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})
	require.NoError(t, w.EditForm(Patch{GuestName: strPtr("Asha")}))

	assert.Empty(t, w.Draft().GuestName)
	require.NotNil(t, w.PendingForm().GuestName)
	assert.True(t, w.SyncForm())
	assert.Equal(t, "Asha", w.Draft().GuestName)
}

func TestWizard_PrevKeepsData(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})
	driveToConfirmation(t, w)

	assert.True(t, w.Prev())
	assert.True(t, w.Prev())
	assert.False(t, w.Prev())
	assert.Equal(t, StepScheduling, w.Step())

	sel := w.Selection()
	assert.Equal(t, "10:30am", sel.StartTime)
	require.NoError(t, w.Next())
	assert.Equal(t, "Asha", w.Draft().GuestName)
	require.NoError(t, w.Next())
	assert.Equal(t, StepConfirmation, w.Step())
}

func TestWizard_SubmitTermsFalseNeverReachesNetwork(t *testing.T) {
	sub := &stubSubmitter{id: "m-1"}
	w := newTestWizard(t, sub)
	driveToConfirmation(t, w)
	yes := true
	require.NoError(t, w.Update(Patch{ConfirmAttendance: &yes}))

	_, err := w.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgAgreeToTerms, verr.Message)
	assert.Equal(t, int32(0), sub.calls.Load())
	assert.False(t, w.Busy())
}

func TestWizard_SubmitAttendanceRequired(t *testing.T) {
	sub := &stubSubmitter{id: "m-1"}
	w := newTestWizard(t, sub)
	driveToConfirmation(t, w)
	yes := true
	require.NoError(t, w.Update(Patch{AgreedToTerms: &yes}))

	_, err := w.Submit(context.Background())
	assert.Equal(t, MsgConfirmAttendance, UserMessage(err))
	assert.Equal(t, int32(0), sub.calls.Load())
}

func TestWizard_SubmitRechecksEmail(t *testing.T) {
	sub := &stubSubmitter{id: "m-1"}
	w := newTestWizard(t, sub)
	require.NoError(t, w.SelectDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, w.SelectTime("10:30am"))
	require.NoError(t, w.Next())
	fillDetails(t, w)
	err := w.EditForm(Patch{GuestEmail: strPtr("asha@")})
	assert.Equal(t, MsgInvalidEmail, UserMessage(err))
	// the widget reports the bad email but advancing only needs non-empty fields
	require.NoError(t, w.Next())
	agree(t, w)

	_, err = w.Submit(context.Background())
	assert.Equal(t, MsgInvalidEmail, UserMessage(err))
	assert.Equal(t, int32(0), sub.calls.Load())
}

func TestWizard_SubmitOnlyFromConfirmation(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotAtConfirmation)
}

func TestWizard_SubmitSuccessResetsDraft(t *testing.T) {
	sub := &stubSubmitter{id: "abc123"}
	w := newTestWizard(t, sub)
	driveToConfirmation(t, w)
	agree(t, w)

	meeting, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", meeting.ID)
	assert.Equal(t, "Asha", meeting.GuestName)
	assert.Equal(t, ModeCreate, sub.lastReq.Mode)
	assert.Equal(t, "10:30am", sub.lastReq.Selection.StartTime)
	require.NotNil(t, sub.lastReq.Draft.Organizer)
	assert.Equal(t, "user-1", *sub.lastReq.Draft.Organizer)

	assert.Empty(t, w.Draft().GuestName)
	conf, ok := w.Confirmation()
	require.True(t, ok)
	assert.Equal(t, "abc123", conf.ID)

	assert.ErrorIs(t, w.Update(Patch{GuestName: strPtr("x")}), ErrWizardCompleted)
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrWizardCompleted)
	assert.Equal(t, int32(1), sub.calls.Load())
}

func TestWizard_SubmitFailureKeepsDraft(t *testing.T) {
	sub := &stubSubmitter{err: &TransportError{Message: "Slot already taken", Status: 409}}
	w := newTestWizard(t, sub)
	driveToConfirmation(t, w)
	agree(t, w)

	_, err := w.Submit(context.Background())
	assert.Equal(t, "Slot already taken", UserMessage(err))
	assert.Equal(t, StepConfirmation, w.Step())
	assert.Equal(t, "Asha", w.Draft().GuestName)
	assert.False(t, w.Busy())
	_, ok := w.Confirmation()
	assert.False(t, ok)

	sub.err = nil
	sub.id = "retry-1"
	meeting, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "retry-1", meeting.ID)
}

func TestWizard_NilResultIsTransportError(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{returnNil: true})
	driveToConfirmation(t, w)
	agree(t, w)

	_, err := w.Submit(context.Background())
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, MsgGenericFailure, terr.Message)
}

func TestWizard_SecondSubmitWhileBusyIsRejected(t *testing.T) {
	sub := &stubSubmitter{id: "m-1", release: make(chan struct{}), entered: make(chan struct{})}
	w := newTestWizard(t, sub)
	driveToConfirmation(t, w)
	agree(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	<-sub.entered

	assert.True(t, w.Busy())
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.ErrorIs(t, w.Update(Patch{GuestName: strPtr("x")}), ErrSubmissionInFlight)
	assert.False(t, w.Prev())

	close(sub.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), sub.calls.Load())
}

func TestWizard_Reschedule(t *testing.T) {
	existing := completeDraft()
	existing.ID = "m-42"
	existing.AgreedToTerms = false
	sub := &stubSubmitter{id: "m-42"}
	w := NewWizard(Entry{IsRescheduling: true, MeetingData: &existing}, nil, sub, WithClock(fixedNow))

	assert.Equal(t, ModeReschedule, w.Mode())
	assert.Equal(t, "Asha", w.Draft().GuestName)

	require.NoError(t, w.SelectDate(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, w.SelectTime("4:00pm"))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	agree(t, w)

	_, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeReschedule, sub.lastReq.Mode)
	assert.Equal(t, "m-42", sub.lastReq.Draft.ID)
	assert.Equal(t, "4:00pm", sub.lastReq.Draft.StartTime)
	assert.Equal(t, MsgRescheduled, SuccessNotice(w.Mode()))
}

func TestWizard_RescheduleWithoutIDFailsLocally(t *testing.T) {
	existing := completeDraft()
	sub := &stubSubmitter{}
	w := NewWizard(Entry{IsRescheduling: true, MeetingData: &existing}, nil, sub, WithClock(fixedNow))
	driveToConfirmation(t, w)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrMissingMeetingID)
	assert.Equal(t, int32(0), sub.calls.Load())
}

func TestWizard_RescheduleFlagWithoutDataIsCreate(t *testing.T) {
	w := NewWizard(Entry{IsRescheduling: true}, nil, &stubSubmitter{})
	assert.Equal(t, ModeCreate, w.Mode())
}

func TestWizard_SnapshotRestore(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})
	require.NoError(t, w.SelectDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, w.SelectTime("10:30am"))
	require.NoError(t, w.Next())
	require.NoError(t, w.EditForm(Patch{GuestName: strPtr("Asha")}))

	restored := Restore(w.Snapshot(), &stubSubmitter{}, WithClock(fixedNow))
	assert.Equal(t, StepDetails, restored.Step())
	assert.Equal(t, "10:30am", restored.Selection().StartTime)
	require.NotNil(t, restored.PendingForm().GuestName)
	assert.Equal(t, "Asha", *restored.PendingForm().GuestName)
	assert.Empty(t, restored.Draft().GuestName)
}

func TestNewWizard_PanicsWithoutSubmitter(t *testing.T) {
	assert.Panics(t, func() { NewWizard(Entry{}, nil, nil) })
}

func TestWizard_EditFormChecksTouchedFields(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})

	// untouched required fields are left to the step check
	require.NoError(t, w.EditForm(Patch{GuestName: strPtr("Asha")}))

	err := w.EditForm(Patch{GuestPhone: strPtr(""), GuestEmail: strPtr("nope")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepDetails, verr.Step)
	assert.Equal(t, []string{"guestEmail", "guestPhone"}, verr.Missing)
	assert.Equal(t, MsgInvalidEmail, verr.Message)
	assert.Equal(t, "nope", *w.PendingForm().GuestEmail, "rejected values stay in the widget")

	require.NoError(t, w.EditForm(Patch{Description: strPtr("notes only")}))
}

func TestWizard_OrganizerIsReadOnly(t *testing.T) {
	w := newTestWizard(t, &stubSubmitter{})
	other := "someone-else"

	err := w.Update(Patch{Organizer: &other})
	assert.ErrorIs(t, err, ErrReadOnlyField)
	err = w.EditForm(Patch{Organizer: &other, GuestName: strPtr("Asha")})
	assert.ErrorIs(t, err, ErrReadOnlyField)

	require.NotNil(t, w.Draft().Organizer)
	assert.Equal(t, "user-1", *w.Draft().Organizer)
	assert.Nil(t, w.PendingForm().GuestName, "a rejected patch is not applied at all")
}

func TestWizard_MeetingIDIsReadOnly(t *testing.T) {
	existing := completeDraft()
	existing.ID = "m-42"
	w := NewWizard(Entry{IsRescheduling: true, MeetingData: &existing}, nil, &stubSubmitter{}, WithClock(fixedNow))

	err := w.EditForm(Patch{ID: strPtr("m-2")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrReadOnlyField)
	assert.Equal(t, []string{"_id"}, verr.Missing)
	assert.ErrorIs(t, w.Update(Patch{ID: strPtr("m-2")}), ErrReadOnlyField)

	assert.False(t, w.SyncForm())
	assert.Equal(t, "m-42", w.Draft().ID)

	created := newTestWizard(t, &stubSubmitter{})
	assert.ErrorIs(t, created.Update(Patch{ID: strPtr("m-2")}), ErrReadOnlyField)
	assert.Empty(t, created.Draft().ID)
}
