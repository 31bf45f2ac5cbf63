// Package tools executes the shell commands plans ask for, with a bounded
// runtime and captured output.
package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/felixgeelhaar/autodev/internal/log"
)

// Result is what a command run produced. A timeout is reported as an
// ordinary failure, not a distinct class: the retry loop treats both the
// same way.
type Result struct {
	Command  string
	ExitCode int
	Output   string // stdout and stderr interleaved
	Duration time.Duration
	TimedOut bool
}

// Passed reports whether the command exited cleanly.
func (r Result) Passed() bool {
	return r.ExitCode == 0
}

// Feedback renders the result as failure text for the planner.
func (r Result) Feedback() string {
	if r.TimedOut {
		return fmt.Sprintf("Command timed out: %s\nPartial output:\n%s", r.Command, r.Output)
	}
	return fmt.Sprintf("Command failed (exit %d): %s\nOutput:\n%s", r.ExitCode, r.Command, r.Output)
}

// Runner executes commands sequentially inside a working directory.
type Runner struct {
	dir     string
	timeout time.Duration
	logger  *log.Logger
}

// NewRunner creates a Runner rooted at dir. Every command gets at most
// timeout of wall-clock time unless the caller's context ends sooner.
func NewRunner(dir string, timeout time.Duration, logger *log.Logger) *Runner {
	return &Runner{dir: dir, timeout: timeout, logger: logger}
}

// Run executes a shell command and captures its combined output. It never
// returns an error for a failing command; the Result carries the exit code
// and output so failures can flow back to the planner verbatim.
func (r *Runner) Run(ctx context.Context, command string) Result {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = r.dir

	out, err := cmd.CombinedOutput()
	result := Result{
		Command:  command,
		Output:   strings.TrimRight(string(out), "\n"),
		Duration: time.Since(start),
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.ExitCode = -1
		result.TimedOut = true
		result.Output += fmt.Sprintf("\n(killed after %s)", r.timeout)
	case err != nil:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Output = err.Error()
		}
	}

	r.logger.Debug("command finished",
		"command", command,
		"exit_code", result.ExitCode,
		"duration", result.Duration.Round(time.Millisecond))

	return result
}
