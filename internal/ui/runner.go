package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for a multi-step operation
type RunnerConfig struct {
	Title     string    // e.g., "Upload"
	Command   string    // e.g., "espdmx-cfg upload"
	Params    []Param   // Shown in the header
	StepNames []string  // Names for each step
	Output    io.Writer // Output writer (default: os.Stdout)

	// Hint returns troubleshooting tips for a failure
	Hint func(err error) []string
}

// Runner prints a header, reports step progress as the operation runs and
// finishes with a result box.
type Runner struct {
	config RunnerConfig
	steps  *Steps
	out    io.Writer
	width  int
}

// NewRunner creates a runner for an operation
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Runner{
		config: config,
		steps:  NewSteps(config.StepNames...),
		out:    config.Output,
		width:  GetTerminalWidth(),
	}
}

// SetWidth overrides the terminal width
func (r *Runner) SetWidth(width int) *Runner {
	r.width = width
	return r
}

// Steps returns the runner's step list
func (r *Runner) Steps() *Steps {
	return r.steps
}

// Operation performs the work, reporting through onStep, and returns the
// details shown in the success box.
type Operation func(ctx context.Context, onStep StepCallback) ([]Param, error)

// Run executes op and renders its progress and result.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.out, NewHeader(r.config.Title, r.config.Command, r.config.Params...).SetWidth(r.width).Render())
	_, _ = fmt.Fprintln(r.out)

	details, err := op(ctx, r.onStep)
	duration := time.Since(start).Round(time.Millisecond)

	_, _ = fmt.Fprintln(r.out)
	if r.steps.Len() > 0 {
		_, _ = fmt.Fprintln(r.out, r.steps.RenderBar())
		_, _ = fmt.Fprintln(r.out)
	}

	if err != nil {
		var tips []string
		if r.config.Hint != nil {
			tips = r.config.Hint(err)
		}
		res := NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width)
		_, _ = fmt.Fprintln(r.out, res.Render())
		return err
	}

	res := NewSuccessResult(r.config.Title+" complete", details...).SetWidth(r.width)
	res.AddDetail("Duration", duration.String())
	_, _ = fmt.Fprintln(r.out, res.Render())
	return nil
}

func (r *Runner) onStep(n int, status StepStatus, message string) {
	r.steps.Update(n, status, message)
	switch status {
	case StepRunning:
		// Overwritten when the step finishes
		_, _ = fmt.Fprint(r.out, r.steps.RenderLine(n)+"\r")
	case StepComplete, StepFailed, StepSkipped:
		_, _ = fmt.Fprintln(r.out, r.steps.RenderLine(n))
	}
}
