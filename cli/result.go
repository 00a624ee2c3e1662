package cli

// CommandError is returned by a command that already reported its failure on stderr. Main
// exits with ExitCode without printing the error again.
type CommandError struct {
	exitCode int
	cause    error
}

// NewCommandError creates a CommandError for a reported cause, which may be nil.
func NewCommandError(exitCode int, cause error) *CommandError {
	return &CommandError{exitCode: exitCode, cause: cause}
}

func (e *CommandError) Error() string {
	if e.cause == nil {
		return "command failed"
	}
	return e.cause.Error()
}

// Unwrap returns the reported cause.
func (e *CommandError) Unwrap() error {
	return e.cause
}

// ExitCode returns the exit code associated with this error.
func (e *CommandError) ExitCode() int {
	return e.exitCode
}
