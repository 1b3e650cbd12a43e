// Package task holds the single-active-task state machine.
//
// Exactly one State is active at a time. Commands are decoded into a closed
// set of kinds, and each kind has one rule that either rejects the command
// or returns the next state plus the effects to run.
package task

import "fmt"

// State is the active subsystem task.
type State string

const (
	StateIdle        State = "idle"
	StateLocalizing  State = "localizing"
	StateMapping     State = "mapping"
	StateRecognizing State = "recognizing"
	StateArmOpen     State = "arm_open"
	StateArmClosed   State = "arm_closed"

	// Error states are reported by the subsystems themselves.
	StateErrLocalization State = "error_localization"
	StateErrMapping      State = "error_mapping"
	StateErrRecognition  State = "error_recognition"
	StateErrArm          State = "error_arm"
)

// Subsystem fault report codes.
const (
	FaultLocalization = 50
	FaultMapping      = 51
	FaultRecognition  = 52
	FaultArm          = 53
)

var faultStates = map[int]State{
	FaultLocalization: StateErrLocalization,
	FaultMapping:      StateErrMapping,
	FaultRecognition:  StateErrRecognition,
	FaultArm:          StateErrArm,
}

// FaultState maps a subsystem report code to its error state.
func FaultState(code int) (State, bool) {
	s, ok := faultStates[code]
	return s, ok
}

// IsError reports whether s is one of the error states.
func (s State) IsError() bool {
	switch s {
	case StateErrLocalization, StateErrMapping, StateErrRecognition, StateErrArm:
		return true
	}
	return false
}

// OwnsMotors reports whether a running task drives the base itself.
func (s State) OwnsMotors() bool {
	return s == StateLocalizing || s == StateMapping
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateLocalizing, StateMapping, StateRecognizing, StateArmOpen, StateArmClosed:
		return true
	}
	return s.IsError()
}

// RejectedError is returned when a command is not legal in the current state.
type RejectedError struct {
	Code   int
	State  State
	Reason string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("command %d rejected in %s: %s", e.Code, e.State, e.Reason)
}

// Rejection reasons.
const (
	ReasonBusy        = "busy"
	ReasonNotRunning  = "not running"
	ReasonAlreadyOpen = "already open"
	ReasonNotOpen     = "not open"
	ReasonUnknown     = "unknown"
	reasonCannotMove  = "cannot move while %s"
)

func reject(code int, s State, reason string) error {
	return &RejectedError{Code: code, State: s, Reason: reason}
}
