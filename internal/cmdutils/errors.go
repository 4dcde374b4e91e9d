package cmdutils

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// ErrSilent indicates that the error message should not be printed,
// because the cause was already reported through the logger.
var ErrSilent = WrapSilentError(errors.New("SilentError"))

// SilentError indicates that the error message should not be printed
type SilentError struct {
	err error
}

func (e *SilentError) Error() string {
	return e.err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.err
}

// WrapSilentError wraps an existing error into a SilentError
func WrapSilentError(err error) error {
	return &SilentError{err}
}

func IsSilentError(err error) bool {
	var silentErr *SilentError
	return errors.As(err, &silentErr)
}

// IncorrectUsageError indicates that the user used the command line
// interface incorrectly, in which case the command usage is printed.
type IncorrectUsageError struct {
	err error
}

func (e *IncorrectUsageError) Error() string {
	return e.err.Error()
}

func (e *IncorrectUsageError) Unwrap() error {
	return e.err
}

// WrapIncorrectUsageError wraps an existing error into an
// IncorrectUsageError
func WrapIncorrectUsageError(err error) error {
	return &IncorrectUsageError{err}
}

func IsIncorrectUsageError(err error) bool {
	var usageErr *IncorrectUsageError
	return errors.As(err, &usageErr)
}

// ExecError indicates that one of the kit executables could not be
// executed. That is usually caused by the user's environment, not by
// the harness, so the error is printed without a stack trace.
type ExecError struct {
	err error
	cmd *exec.Cmd
}

func (e *ExecError) Error() string {
	if e.cmd != nil {
		return fmt.Sprintf("%s: %s", filepath.Base(e.cmd.Path), e.err.Error())
	}
	return e.err.Error()
}

func (e *ExecError) Unwrap() error {
	return e.err
}

// WrapExecError wraps an existing error into an ExecError
func WrapExecError(err error, cmd *exec.Cmd) error {
	return &ExecError{err, cmd}
}

func IsExecError(err error) bool {
	var execErr *ExecError
	return errors.As(err, &execErr)
}

// SignalError indicates that the run was terminated by a signal.
type SignalError struct {
	Signal syscall.Signal
}

func NewSignalError(signal syscall.Signal) *SignalError {
	return &SignalError{signal}
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("terminated by signal %d (%s)", int(e.Signal), e.Signal)
}
