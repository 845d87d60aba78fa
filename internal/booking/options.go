package booking

import "fmt"

// TimeSlots are the bookable start times, in display order.
var TimeSlots = []string{
	"9:30am", "10:00am", "10:30am", "11:00am", "11:30am",
	"12:00pm", "12:30pm", "1:00pm", "2:00pm", "2:30pm",
	"3:00pm", "3:30pm", "4:00pm", "4:30pm", "5:00pm",
}

// Durations are the allowed meeting lengths in minutes.
var Durations = []int{15, 30, 45, 60}

// Timezone is a selectable display timezone.
type Timezone struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DefaultTimezone is preselected on the scheduling step.
const DefaultTimezone = "Asia/Kolkata"

// Timezones lists the display timezones offered on the scheduling step.
var Timezones = []Timezone{
	{Value: "Asia/Kolkata", Label: "India Standard Time (IST)"},
	{Value: "America/New_York", Label: "Eastern Time (ET)"},
	{Value: "America/Los_Angeles", Label: "Pacific Time (PT)"},
	{Value: "Europe/London", Label: "British Time (GMT/BST)"},
	{Value: "Asia/Dubai", Label: "Gulf Standard Time (GST)"},
	{Value: "Asia/Singapore", Label: "Singapore Time (SGT)"},
	{Value: "Australia/Sydney", Label: "Australian Eastern Time (AET)"},
	{Value: "Europe/Paris", Label: "Central European Time (CET)"},
	{Value: "Asia/Tokyo", Label: "Japan Standard Time (JST)"},
}

// DurationOption pairs a duration with its label.
type DurationOption struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

// Options is everything a presentation layer needs to render the wizard.
type Options struct {
	TimeSlots []string         `json:"timeSlots"`
	Durations []DurationOption `json:"durations"`
	Timezones []Timezone       `json:"timezones"`
	Steps     []StepInfo       `json:"steps"`
	Required  []string         `json:"requiredFields"`
}

// AvailableOptions returns copies of the fixed enumerations.
func AvailableOptions() Options {
	durations := make([]DurationOption, 0, len(Durations))
	for _, d := range Durations {
		durations = append(durations, DurationOption{Minutes: d, Label: fmt.Sprintf("%d minutes", d)})
	}
	return Options{
		TimeSlots: append([]string(nil), TimeSlots...),
		Durations: durations,
		Timezones: append([]Timezone(nil), Timezones...),
		Steps:     Steps(),
		Required:  RequiredFields(),
	}
}

// IsTimeSlot reports whether slot is one of TimeSlots.
func IsTimeSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// IsDuration reports whether minutes is one of Durations.
func IsDuration(minutes int) bool {
	for _, d := range Durations {
		if d == minutes {
			return true
		}
	}
	return false
}

// IsTimezone reports whether value is one of Timezones.
func IsTimezone(value string) bool {
	for _, tz := range Timezones {
		if tz.Value == value {
			return true
		}
	}
	return false
}
