package booking

import (
	"fmt"
	"math"
)

// Step is a wizard state.
type Step int

const (
	StepScheduling Step = iota
	StepDetails
	StepConfirmation
)

var stepNames = map[Step]string{
	StepScheduling:   "scheduling",
	StepDetails:      "details",
	StepConfirmation: "confirmation",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// MarshalText encodes the step by name.
func (s Step) MarshalText() ([]byte, error) {
	if _, ok := stepNames[s]; !ok {
		return nil, fmt.Errorf("booking: unknown step %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(text []byte) error {
	for step, name := range stepNames {
		if name == string(text) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("booking: unknown step %q", string(text))
}

// StepInfo describes a step for display.
type StepInfo struct {
	Step        Step   `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var stepInfo = []StepInfo{
	{StepScheduling, "Select Date & Time", "Choose your preferred date and time for the consultation"},
	{StepDetails, "Enter Details", "Fill in your information and business details"},
	{StepConfirmation, "Confirm Booking", "Review and confirm your meeting"},
}

// Steps returns the steps in order.
func Steps() []StepInfo {
	return append([]StepInfo(nil), stepInfo...)
}

// Progress returns the completion percentage shown while on step.
func Progress(step Step) int {
	return int(math.Round(float64(int(step)+1) / float64(len(stepInfo)) * 100))
}

type transition struct {
	next  Step
	check func(MeetingDraft, Selection) Verdict
}

// transitions is the whole flow. A step without an entry is terminal.
var transitions = map[Step]transition{
	StepScheduling: {next: StepDetails, check: checkSchedule},
	StepDetails:    {next: StepConfirmation, check: checkDetails},
}

// Sequencer walks the steps. Forward moves are gated by the step's check;
// backward moves never are.
type Sequencer struct {
	current Step
}

// NewSequencer starts at the first step.
func NewSequencer() *Sequencer {
	return &Sequencer{current: StepScheduling}
}

// Current returns the active step.
func (s *Sequencer) Current() Step {
	return s.current
}

// HasNext reports whether Next is offered. On the last step submission replaces it.
func (s *Sequencer) HasNext() bool {
	_, ok := transitions[s.current]
	return ok
}

// HasPrev reports whether Prev would move.
func (s *Sequencer) HasPrev() bool {
	_, ok := previous(s.current)
	return ok
}

// Next validates the current step and advances on success. On failure the
// step is unchanged and a *ValidationError describes why.
func (s *Sequencer) Next(d MeetingDraft, sel Selection) error {
	tr, ok := transitions[s.current]
	if !ok {
		return ErrNoNextStep
	}
	if err := tr.check(d, sel).err(s.current); err != nil {
		return err
	}
	s.current = tr.next
	return nil
}

// Prev steps back one state without validation. It is a no-op on the first step.
func (s *Sequencer) Prev() bool {
	prev, ok := previous(s.current)
	if ok {
		s.current = prev
	}
	return ok
}

func (s *Sequencer) restore(step Step) {
	if _, ok := stepNames[step]; ok {
		s.current = step
	}
}

func previous(step Step) (Step, bool) {
	for from, tr := range transitions {
		if tr.next == step {
			return from, true
		}
	}
	return step, false
}
