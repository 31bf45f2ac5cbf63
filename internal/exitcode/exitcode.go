package exitcode

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates the agent completed the full task
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates invalid or unloadable configuration
	ConfigError = 3

	// CollaboratorUnreachable indicates a planner/executor endpoint could not
	// be reached at startup
	CollaboratorUnreachable = 4

	// Interrupted indicates the run was cancelled by an external stop signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var agentErr *errors.AgentError
	if stderrors.As(err, &agentErr) {
		switch agentErr.Code {
		case errors.ErrCodeConfigLoad, errors.ErrCodeConfigInvalid, errors.ErrCodeTaskMissing:
			return ConfigError
		case errors.ErrCodePlannerUnavailable, errors.ErrCodeExecutorUnavailable:
			return CollaboratorUnreachable
		}
		return GeneralError
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "invalid argument") {
		return UsageError
	}
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return CollaboratorUnreachable
	}

	return GeneralError
}
