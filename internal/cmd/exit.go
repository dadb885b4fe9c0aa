package cmd

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/bucketwalk/pkg/walker"
)

// Process exit codes. Everything except success, generic failure and partial
// comes from the foundry exit code catalog.
const (
	ExitOK = 0

	// ExitFailure is an internal failure with no more specific code.
	ExitFailure = 1

	// ExitPartial means keys were written but some prefixes were lost.
	ExitPartial = 3

	ExitInvalidArgument    = foundry.ExitInvalidArgument
	ExitServiceUnavailable = foundry.ExitExternalServiceUnavailable
	ExitOutputFailure      = foundry.ExitFileWriteError
	ExitJobNotFound        = foundry.ExitFileNotFound
	ExitInterrupted        = foundry.ExitSignalInt
)

// ExitError carries the process exit code for a command failure.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code for an error returned by a command.
// Errors that are not ExitErrors come from flag and argument parsing.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitInvalidArgument
}

// resultExitCode maps an enumeration outcome to an exit code.
func resultExitCode(res *walker.Result) int {
	switch res.Status {
	case walker.StatusComplete:
		return ExitOK
	case walker.StatusPartial:
		if errors.Is(res.Stopped, walker.ErrCancelled) {
			return ExitInterrupted
		}
		return ExitPartial
	default:
		switch walker.Classify(res.Cause) {
		case walker.KindInvalidArgument:
			return ExitInvalidArgument
		case walker.KindCancelled:
			return ExitInterrupted
		}
		return ExitServiceUnavailable
	}
}

func resultError(res *walker.Result) error {
	code := resultExitCode(res)
	if code == ExitOK {
		return nil
	}
	return exitError(code, fmt.Sprintf("enumeration %s", res.Status), res.Cause)
}
