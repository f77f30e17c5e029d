package sdrcore

import (
	"errors"
	"fmt"
)

var (
	ErrBlockSize      = errors.New("block size must be a power of two of at least 64")
	ErrSampleRate     = errors.New("sample rate must be positive")
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad argument")
)

// CommandError is a rejected update. Code is the negative status reported
// back to the caller.
type CommandError struct {
	Command string
	Code    int
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v (status %d)", e.Command, e.Err, e.Code)
}

func (e *CommandError) Unwrap() error { return e.Err }

// reject builds a CommandError wrapping ErrBadArgument. The command name is
// filled in by the dispatcher.
func reject(code int, format string, args ...interface{}) error {
	return &CommandError{
		Code: code,
		Err:  fmt.Errorf("%w: %s", ErrBadArgument, fmt.Sprintf(format, args...)),
	}
}

// asReject passes CommandErrors through and turns anything else into a -1
// rejection.
func asReject(err error) error {
	var ce *CommandError
	if errors.As(err, &ce) {
		return err
	}
	return &CommandError{Code: -1, Err: fmt.Errorf("%w: %v", ErrBadArgument, err)}
}
