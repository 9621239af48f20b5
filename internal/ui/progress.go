package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step is one stage of a multi-step operation such as upload and verify
type Step struct {
	Number  int        // 1-based
	Name    string     // e.g., "Validate fields"
	Status  StepStatus // Current status
	Message string     // Optional note, e.g., "3 attempts"
}

// Steps tracks the state of a fixed list of steps.
type Steps struct {
	items []Step
	bar   progress.Model
}

// NewSteps creates a pending step list with the given names.
func NewSteps(names ...string) *Steps {
	items := make([]Step, len(names))
	for i, name := range names {
		items[i] = Step{Number: i + 1, Name: name}
	}
	return &Steps{
		items: items,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

// Len returns the number of steps
func (s *Steps) Len() int {
	return len(s.items)
}

// Get returns step n (1-based). Out of range numbers return the zero Step.
func (s *Steps) Get(n int) Step {
	if n < 1 || n > len(s.items) {
		return Step{}
	}
	return s.items[n-1]
}

// Update sets the status and note of step n. Out of range numbers are ignored.
func (s *Steps) Update(n int, status StepStatus, message string) {
	if n < 1 || n > len(s.items) {
		return
	}
	s.items[n-1].Status = status
	s.items[n-1].Message = message
}

// Percent is the share of steps that are complete or skipped.
func (s *Steps) Percent() float64 {
	if len(s.items) == 0 {
		return 0
	}
	done := 0
	for _, st := range s.items {
		if st.Status == StepComplete || st.Status == StepSkipped {
			done++
		}
	}
	return float64(done) / float64(len(s.items))
}

// RenderBar renders the progress bar with a percentage.
func (s *Steps) RenderBar() string {
	p := s.Percent()
	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %3.0f%%", s.bar.ViewAs(p), p*100))
}

// RenderLine renders step n as "[n/total] name   marker (message)".
func (s *Steps) RenderLine(n int) string {
	step := s.Get(n)

	var marker string
	var style lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, len(s.items))
	b.WriteString(style.Render(step.Name))

	// Markers line up at a fixed column
	padding := 36 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// StepCallback reports a status change for step n.
type StepCallback func(n int, status StepStatus, message string)
