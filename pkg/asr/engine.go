// Package asr wraps a callback-driven speech recognition engine in a
// synchronous, scoped listening session.
//
// An Engine delivers a session as three callbacks: begin, zero or more
// result fragments (the last one flagged), and end with a reason code.
// Listen turns that into one blocking call that returns the transcript
// and always releases the engine.
package asr

import (
	"context"
	"errors"
	"fmt"
)

// End reasons reported by engines.
const (
	// EndNormal means the engine detected the end of speech.
	EndNormal = 0

	// EndDisconnected means the engine connection dropped mid-session.
	EndDisconnected = -1
)

// ErrTimeout is wrapped in a SessionError when the engine does not finish
// within the session timeout.
var ErrTimeout = errors.New("asr: session timed out")

// ErrAbnormalEnd is wrapped in a SessionError when the engine ends the
// session with a non-normal reason.
var ErrAbnormalEnd = errors.New("asr: session ended abnormally")

// Notifier receives session callbacks. Engines may call it from any
// goroutine but never concurrently.
type Notifier interface {
	OnBegin()
	OnResult(text string, last bool)
	OnEnd(reason int)
}

// Engine is a speech recognition engine.
type Engine interface {
	// Login acquires engine credentials or a connection.
	Login(ctx context.Context) error

	// Start begins one listening session. Callbacks flow to n until OnEnd.
	Start(ctx context.Context, n Notifier) error

	// Stop ends the current session. Safe to call after OnEnd.
	Stop() error

	// Logout releases what Login acquired.
	Logout() error
}

// SessionError is returned when a listening session fails.
type SessionError struct {
	// Op is the phase that failed: login, start, wait or end.
	Op string

	// Reason is the engine end reason, when Op is "end".
	Reason int

	Err error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Op == "end" {
		return fmt.Sprintf("asr %s (reason %d): %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("asr %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.Err
}
