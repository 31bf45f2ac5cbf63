// Package plan defines the action plan the planner produces and the tolerant
// parser that recovers it from raw model output.
package plan

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/errors"
)

// ActionType names a unit of planned work.
type ActionType string

const (
	ActionWriteFile      ActionType = "write_file"
	ActionReadFile       ActionType = "read_file"
	ActionExecuteCommand ActionType = "execute_command"
	ActionRunRegression  ActionType = "run_regression_tests"
	ActionGenerateDocs   ActionType = "generate_docs"
	ActionEndTask        ActionType = "end_task"
)

var knownActionTypes = map[ActionType]bool{
	ActionWriteFile:      true,
	ActionReadFile:       true,
	ActionExecuteCommand: true,
	ActionRunRegression:  true,
	ActionGenerateDocs:   true,
	ActionEndTask:        true,
}

// Action is one planned step. For write_file actions Target is the file
// path and ContentInstruction tells the executor what to produce; for
// execute_command actions Target carries the command string. Actions are
// immutable once issued.
type Action struct {
	Step               int        `json:"step"`
	Type               ActionType `json:"action"`
	Target             string     `json:"target,omitempty"`
	ContentInstruction string     `json:"content_instruction,omitempty"`
	FeatureName        string     `json:"feature_name,omitempty"`
}

// Command returns the shell command an execute_command action carries.
func (a Action) Command() string {
	return a.Target
}

// Plan is the ordered action sequence for one feature iteration. A retry
// supersedes the plan with a fresh one; plans are never mutated in place.
type Plan struct {
	Actions []Action
}

// FeatureName returns the first feature name any action declares, or "".
func (p Plan) FeatureName() string {
	for _, a := range p.Actions {
		if a.FeatureName != "" {
			return a.FeatureName
		}
	}
	return ""
}

// WritesTests reports whether the plan writes any file under the test tree.
func (p Plan) WritesTests() bool {
	for _, a := range p.Actions {
		if a.Type == ActionWriteFile && strings.Contains(strings.ToLower(a.Target), "test") {
			return true
		}
	}
	return false
}

// RunsTests reports whether the plan executes anything that looks like a
// test command.
func (p Plan) RunsTests() bool {
	for _, a := range p.Actions {
		if a.Type != ActionExecuteCommand {
			continue
		}
		cmd := strings.ToLower(a.Target)
		for _, kw := range []string{"test", "phpunit", "pytest", "unittest"} {
			if strings.Contains(cmd, kw) {
				return true
			}
		}
	}
	return false
}

// Validate checks plan-level invariants after parsing. Unknown action types
// are rejected here rather than silently skipped during execution so the
// planner gets precise feedback.
func (p Plan) Validate() error {
	if len(p.Actions) == 0 {
		return errors.New(errors.ErrCodePlanEmpty, "plan contains no actions").
			WithSuggestion("The planner must return at least one action")
	}
	for i, a := range p.Actions {
		t := ActionType(strings.ToLower(string(a.Type)))
		if !knownActionTypes[t] {
			return errors.New(errors.ErrCodePlanUnknownAction,
				fmt.Sprintf("action %d has unknown type %q", i+1, a.Type)).
				WithSuggestion("Valid types: write_file, read_file, execute_command, run_regression_tests, generate_docs, end_task")
		}
		if t == ActionWriteFile && a.Target == "" {
			return errors.New(errors.ErrCodePlanUnknownAction,
				fmt.Sprintf("write_file action %d has no target path", i+1))
		}
	}
	return nil
}
