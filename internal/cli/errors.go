package cli

import (
	"errors"
	"fmt"

	"github.com/aretw0/shastarun/pkg/domain"
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// UsageError marks err as an argument error.
func UsageError(err error) error {
	return &ExitError{Code: domain.ExitUsage, Err: err}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return domain.ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, domain.ErrInterrupted):
		return domain.ExitInterrupted
	case errors.Is(err, domain.ErrInvalidBool),
		errors.Is(err, domain.ErrInvalidChoice),
		errors.Is(err, domain.ErrInvalidOverride):
		return domain.ExitUsage
	}
	return domain.ExitFatal
}
