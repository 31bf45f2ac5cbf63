// Package ux renders run progress to the console. Structured logs carry the
// full detail; this is the human-readable layer on top.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))
)

// Reporter writes progress events to a terminal.
type Reporter struct {
	out io.Writer
}

// New creates a Reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// RunStarted announces the task and the planned feature count.
func (r *Reporter) RunStarted(task string, features int) {
	fmt.Fprintln(r.out, titleStyle.Render("Autonomous development run"))
	fmt.Fprintf(r.out, "%s %s\n", labelStyle.Render("Task:"), firstLine(task))
	fmt.Fprintf(r.out, "%s %d\n\n", labelStyle.Render("Features:"), features)
}

// FeatureStarted announces the next feature in the queue.
func (r *Reporter) FeatureStarted(name string, index, total int) {
	fmt.Fprintln(r.out, headerStyle.Render(fmt.Sprintf("[%d/%d] %s", index, total, name)))
}

// AttemptStarted marks the beginning of one attempt. The first attempt is
// silent; the counter only matters once retries happen.
func (r *Reporter) AttemptStarted(name string, attempt int) {
	if attempt == 1 {
		return
	}
	fmt.Fprintf(r.out, "%s\n", warnStyle.Render(fmt.Sprintf("  retry %d", attempt)))
}

// AttemptFailed prints the first line of the failure so a watching human
// knows what the next attempt is reacting to.
func (r *Reporter) AttemptFailed(name string, attempt int, reason string) {
	fmt.Fprintf(r.out, "  %s %s\n", failureStyle.Render("✗"), firstLine(reason))
}

// FeatureCompleted marks a feature as done.
func (r *Reporter) FeatureCompleted(name string) {
	fmt.Fprintf(r.out, "  %s %s\n\n", successStyle.Render("✓"), "implemented, tested, and committed")
}

// FeatureAbandoned marks a feature the budget gave up on.
func (r *Reporter) FeatureAbandoned(name string, attempts int) {
	fmt.Fprintf(r.out, "  %s %s\n\n",
		failureStyle.Render("✗"),
		fmt.Sprintf("abandoned after %d attempts", attempts))
}

// RunCompleted prints the final tally.
func (r *Reporter) RunCompleted(completed, abandoned int) {
	if abandoned == 0 {
		fmt.Fprintln(r.out, successStyle.Render(fmt.Sprintf("Done: %d features completed", completed)))
		return
	}
	fmt.Fprintln(r.out, warnStyle.Render(fmt.Sprintf("Done: %d features completed, %d abandoned", completed, abandoned)))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
