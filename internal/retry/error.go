package retry

import "errors"

// TerminalError is an error that should not be retried.
type TerminalError interface {
	error
	IsTerminal()
}

type terminalError struct {
	error
}

func (e terminalError) Unwrap() error { return e.error }

func (terminalError) IsTerminal() {}

// NewTerminalError marks err as not worth retrying.
func NewTerminalError(err error) error {
	if err == nil {
		return nil
	}
	return terminalError{err}
}

// IsTerminalError reports whether err, or an error it wraps, is terminal.
func IsTerminalError(err error) bool {
	var te TerminalError
	return errors.As(err, &te)
}
