package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap satisfies the errors.Wrapper interface
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

var errEmptyBuffer error = errors.New("buffer empty")

var errDimensionMismatch = errors.New("dimension mismatch")

// IsEmptyBuffer returns whether or not an error reports that a replay
// buffer was sampled before any transition was inserted.
func IsEmptyBuffer(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errEmptyBuffer
}

// IsDimensionMismatch returns whether or not an error reports that a
// transition's observation or action vectors do not match the
// dimensions the buffer was built for. This indicates a
// misconfiguration between the agent and the environment and is fatal.
func IsDimensionMismatch(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errDimensionMismatch
}
