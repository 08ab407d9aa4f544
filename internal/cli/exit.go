package cli

import (
	"errors"

	cascadeerrors "cascade.dev/cascade/internal/errors"
)

// Process exit codes
const (
	ExitOK = 0
	// ExitHalted means a cascade stopped on something the user has to resolve
	ExitHalted = 1
	ExitError  = 2
)

// ExitCode maps a command error to the process exit code. A cascade stopped
// by a git failure exits with ExitError even though it can be continued.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, cascadeerrors.ErrCascadeHalted), errors.Is(err, cascadeerrors.ErrUnresolvedConflict):
		return ExitHalted
	default:
		return ExitError
	}
}
