package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Planner errors (PLANNER-001 to PLANNER-099)
	ErrCodePlannerUnavailable ErrorCode = "PLANNER-001"
	ErrCodePlannerTimeout     ErrorCode = "PLANNER-002"
	ErrCodePlannerEmpty       ErrorCode = "PLANNER-003"

	// Executor errors (EXECUTOR-001 to EXECUTOR-099)
	ErrCodeExecutorUnavailable ErrorCode = "EXECUTOR-001"
	ErrCodeExecutorTimeout     ErrorCode = "EXECUTOR-002"
	ErrCodeExecutorEmpty       ErrorCode = "EXECUTOR-003"

	// Plan errors (PLAN-001 to PLAN-099)
	ErrCodePlanParse         ErrorCode = "PLAN-001"
	ErrCodePlanEmpty         ErrorCode = "PLAN-002"
	ErrCodePlanUnknownAction ErrorCode = "PLAN-003"

	// Action errors (ACTION-001 to ACTION-099)
	ErrCodeActionWrite   ErrorCode = "ACTION-001"
	ErrCodeActionCommand ErrorCode = "ACTION-002"

	// Coherence errors (COHERENCE-001 to COHERENCE-099)
	ErrCodeCoherenceCritical ErrorCode = "COHERENCE-001"

	// Tool errors (TOOL-001 to TOOL-099)
	ErrCodeToolFailed  ErrorCode = "TOOL-001"
	ErrCodeToolTimeout ErrorCode = "TOOL-002"

	// Version control errors (VCS-001 to VCS-099)
	ErrCodeVCSInit   ErrorCode = "VCS-001"
	ErrCodeVCSCommit ErrorCode = "VCS-002"
	ErrCodeVCSPush   ErrorCode = "VCS-003"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigLoad    ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeTaskMissing     ErrorCode = "IO-004"
)

// AgentError represents an enhanced error with code, suggestions, and a cause chain
type AgentError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *AgentError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AgentError) Unwrap() error {
	return e.Cause
}

// New creates a new AgentError
func New(code ErrorCode, message string) *AgentError {
	return &AgentError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AgentError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AgentError {
	return &AgentError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *AgentError) WithSuggestion(suggestion string) *AgentError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *AgentError) WithSuggestions(suggestions ...string) *AgentError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// IsRetryable reports whether the orchestrator should convert this error into
// planner feedback and re-enter the feature loop. Everything except
// configuration and startup errors is retryable: the loop only exits on
// success or an external stop.
func (e *AgentError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeConfigLoad, ErrCodeConfigInvalid, ErrCodeTaskMissing:
		return false
	}
	return true
}

// Common error constructors for frequently used errors

// NewPlannerUnavailableError creates a planner connection error
func NewPlannerUnavailableError(endpoint string, cause error) *AgentError {
	return Wrap(ErrCodePlannerUnavailable, fmt.Sprintf("planner endpoint unreachable: %s", endpoint), cause).
		WithSuggestion("Check that the planner LLM server is running").
		WithSuggestion("Verify planner.server in the configuration file")
}

// NewExecutorUnavailableError creates an executor connection error
func NewExecutorUnavailableError(endpoint string, cause error) *AgentError {
	return Wrap(ErrCodeExecutorUnavailable, fmt.Sprintf("executor endpoint unreachable: %s", endpoint), cause).
		WithSuggestion("Check that the executor LLM server is running").
		WithSuggestion("Verify executor.server in the configuration file")
}

// NewPlanParseError creates a malformed-plan error
func NewPlanParseError(details string, cause error) *AgentError {
	return Wrap(ErrCodePlanParse, fmt.Sprintf("cannot parse plan: %s", details), cause).
		WithSuggestion("The planner must respond with a JSON array of actions only")
}

// NewEmptyContentError creates an error for empty executor output
func NewEmptyContentError(target string) *AgentError {
	return New(ErrCodeExecutorEmpty, fmt.Sprintf("executor returned empty content for %s", target)).
		WithSuggestion("Retry with a more specific content instruction")
}

// NewCommandFailedError creates a failed-command error carrying the output
func NewCommandFailedError(command string, exitCode int, output string) *AgentError {
	return New(ErrCodeToolFailed, fmt.Sprintf("command %q failed with exit code %d", command, exitCode)).
		WithSuggestion(fmt.Sprintf("Command output: %s", output))
}

// NewTaskMissingError creates an error for a missing task description
func NewTaskMissingError(path string) *AgentError {
	return New(ErrCodeTaskMissing, fmt.Sprintf("task description not found: %s", path)).
		WithSuggestion("Create the task file with a description of what to build").
		WithSuggestion("Or pass --task with an explicit path")
}
