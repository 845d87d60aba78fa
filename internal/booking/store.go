package booking

import "time"

// SessionUser supplies the locally cached current user. It is read once when
// a fresh draft is created and never re-validated.
type SessionUser interface {
	UserID() (string, bool)
}

// Patch is a partial MeetingDraft. Nil fields are left untouched by Merge.
type Patch struct {
	ID          *string    `json:"_id,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	StartTime   *string    `json:"startTime,omitempty"`
	Duration    *int       `json:"duration,omitempty"`

	GuestName        *string  `json:"guestName,omitempty"`
	GuestEmail       *string  `json:"guestEmail,omitempty"`
	GuestPhone       *string  `json:"guestPhone,omitempty"`
	AdditionalGuests *[]Guest `json:"additionalGuests,omitempty"`

	CurrentRevenue   *string `json:"currentRevenue,omitempty"`
	RevenueGoal      *string `json:"revenueGoal,omitempty"`
	BusinessStruggle *string `json:"businessStruggle,omitempty"`

	ConfirmAttendance *bool   `json:"confirmAttendance,omitempty"`
	AgreedToTerms     *bool   `json:"agreedToTerms,omitempty"`
	Organizer         *string `json:"organizer,omitempty"`
}

// IsEmpty reports whether the patch sets nothing.
func (p Patch) IsEmpty() bool {
	return p == (Patch{})
}

// Overlay returns p with every field set in q taking precedence.
func (p Patch) Overlay(q Patch) Patch {
	out := p
	setPtr(&out.ID, q.ID)
	setPtr(&out.Title, q.Title)
	setPtr(&out.Description, q.Description)
	setPtr(&out.Date, q.Date)
	setPtr(&out.StartTime, q.StartTime)
	setPtr(&out.Duration, q.Duration)
	setPtr(&out.GuestName, q.GuestName)
	setPtr(&out.GuestEmail, q.GuestEmail)
	setPtr(&out.GuestPhone, q.GuestPhone)
	setPtr(&out.AdditionalGuests, q.AdditionalGuests)
	setPtr(&out.CurrentRevenue, q.CurrentRevenue)
	setPtr(&out.RevenueGoal, q.RevenueGoal)
	setPtr(&out.BusinessStruggle, q.BusinessStruggle)
	setPtr(&out.ConfirmAttendance, q.ConfirmAttendance)
	setPtr(&out.AgreedToTerms, q.AgreedToTerms)
	setPtr(&out.Organizer, q.Organizer)
	return out
}

// applyTo overwrites the provided keys of d. Nested values are replaced whole.
func (p Patch) applyTo(d *MeetingDraft) {
	setVal(&d.ID, p.ID)
	setVal(&d.Title, p.Title)
	setVal(&d.Description, p.Description)
	if p.Date != nil {
		date := *p.Date
		d.Date = &date
	}
	setVal(&d.StartTime, p.StartTime)
	setVal(&d.Duration, p.Duration)
	setVal(&d.GuestName, p.GuestName)
	setVal(&d.GuestEmail, p.GuestEmail)
	setVal(&d.GuestPhone, p.GuestPhone)
	if p.AdditionalGuests != nil {
		d.AdditionalGuests = append([]Guest{}, (*p.AdditionalGuests)...)
	}
	setVal(&d.CurrentRevenue, p.CurrentRevenue)
	setVal(&d.RevenueGoal, p.RevenueGoal)
	setVal(&d.BusinessStruggle, p.BusinessStruggle)
	setVal(&d.ConfirmAttendance, p.ConfirmAttendance)
	setVal(&d.AgreedToTerms, p.AgreedToTerms)
	if p.Organizer != nil {
		org := *p.Organizer
		d.Organizer = &org
	}
}

func setPtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func setVal[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Store is the single source of truth for the draft and the scheduling
// selection. It is not safe for concurrent use; Wizard serialises access.
type Store struct {
	draft     MeetingDraft
	selection Selection
}

// NewStore seeds a store with a default draft.
func NewStore(user SessionUser) *Store {
	return &Store{
		draft:     NewDraft(user),
		selection: Selection{Timezone: DefaultTimezone},
	}
}

// NewStoreFromDraft seeds a store with an existing draft, copied verbatim.
func NewStoreFromDraft(draft MeetingDraft) *Store {
	return &Store{
		draft:     draft.Clone(),
		selection: Selection{Timezone: DefaultTimezone},
	}
}

// Get returns a copy of the current draft.
func (s *Store) Get() MeetingDraft {
	return s.draft.Clone()
}

// Merge overwrites the keys present in p and nothing else.
func (s *Store) Merge(p Patch) {
	p.applyTo(&s.draft)
}

// Selection returns a copy of the current scheduling selection.
func (s *Store) Selection() Selection {
	return s.selection.clone()
}

func (s *Store) setSelection(sel Selection) {
	s.selection = sel.clone()
}
