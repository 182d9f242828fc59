// Package agenterr defines the error-kind taxonomy shared by every core
// component: Transport, Parse, Resolution, Confidence, Gesture, Session.
// Each kind is a sentinel that callers can match with errors.Is after a
// wrapped error bubbles up. Verification failures are deliberately not a
// sentinel here — they never throw, surfacing instead as a
// uistate.VerificationStatus value.
package agenterr

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a DeviceSession RPC failure.
	ErrTransport = errors.New("transport error")
	// ErrParse marks an LLM response that failed to parse as JSON or was
	// missing required fields.
	ErrParse = errors.New("parse error")
	// ErrResolution marks a decision that references a tag/grid/element
	// absent from the snapshot it was produced from.
	ErrResolution = errors.New("resolution error")
	// ErrConfidence marks a tier-4 decision below the configured minimum
	// confidence.
	ErrConfidence = errors.New("confidence error")
	// ErrGesture marks a dispatcher failure to execute a gesture (e.g. no
	// element or coordinates to act on).
	ErrGesture = errors.New("gesture error")
	// ErrSession marks an operation invoked before startSession or after
	// stopSession.
	ErrSession = errors.New("session error")
)

// Wrap attaches a message to a sentinel kind, preserving errors.Is matching.
func Wrap(kind error, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &wrapped{kind: kind, msg: msg}
}

type wrapped struct {
	kind error
	msg  string
}

func (w *wrapped) Error() string { return w.msg + ": " + w.kind.Error() }
func (w *wrapped) Unwrap() error { return w.kind }
