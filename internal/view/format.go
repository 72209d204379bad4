package view

import (
	"math"
	"time"

	"dob-oracle/internal/domain"

	"github.com/dustin/go-humanize"
)

// StepNames are the display labels of the backend's seven analysis steps, in order.
var StepNames = []string{
	"Validating Date",
	"Calculating Age",
	"Determining Zodiac",
	"Computing Numerology",
	"Finding Day of Week",
	"Generating Fun Facts",
	"Completing Analysis",
}

type StepState string

const (
	StepCompleted StepState = "completed"
	StepActive    StepState = "active"
	StepPending   StepState = "pending"
)

type Step struct {
	Index int
	Name  string
	State StepState
}

// Steps lays the workflow's current step over the display labels. A step is
// only active while the session is still analyzing, and a completed workflow
// has every step completed whatever its current step.
func Steps(w *domain.WorkflowStatus, analyzing bool) []Step {
	current := 0
	if w != nil {
		current = w.CurrentStep
		if w.Status == domain.WorkflowCompleted {
			current = len(StepNames)
		}
	}

	steps := make([]Step, len(StepNames))
	for i, name := range StepNames {
		state := StepPending
		switch {
		case i < current:
			state = StepCompleted
		case i == current && analyzing:
			state = StepActive
		}
		steps[i] = Step{Index: i, Name: name, State: state}
	}
	return steps
}

// Progress is the rounded percentage of display steps behind the workflow.
// A completed workflow is always 100.
func Progress(w *domain.WorkflowStatus) int {
	if w == nil {
		return 0
	}
	if w.Status == domain.WorkflowCompleted {
		return 100
	}
	pct := math.Round(float64(w.CurrentStep) / float64(len(StepNames)) * 100)
	return int(math.Max(0, math.Min(100, pct)))
}

// FormatDate renders an ISO date as "Saturday, January 1, 2000". Input that
// does not parse is returned unchanged.
func FormatDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("Monday, January 2, 2006")
}

// FormatNumber adds thousands separators.
func FormatNumber(n any) string {
	switch v := n.(type) {
	case int:
		return humanize.Comma(int64(v))
	case int64:
		return humanize.Comma(v)
	case float64:
		return humanize.Comma(int64(math.Floor(v)))
	}
	return ""
}

// Floor truncates the backend's fractional counters for display.
func Floor(v float64) int64 {
	return int64(math.Floor(v))
}
