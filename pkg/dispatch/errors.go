package dispatch

import (
	"errors"
	"fmt"
)

// ErrTurnTimeout reports that the per-turn wall-clock budget elapsed before
// the loop reached a terminal state. The record's done flag is left unset so
// a retry can resume from the same context.
var ErrTurnTimeout = errors.New("turn timed out")

// HandlerError wraps a failure inside an agent handler. The loop recovers
// it by terminating the turn with an apology response; it is logged, not
// retried, and never surfaced to the user.
type HandlerError struct {
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s: %v", e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
