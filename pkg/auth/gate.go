// Package auth tracks the face-authentication lock state.
//
// Voice input is processed only while the gate is unlocked. Each entry
// into the locked or unlocked state owes exactly one announcement.
//
// Gate is not safe for concurrent use; callers serialize access.
package auth

import "github.com/yongli3/voice-system/pkg/effect"

// LockState is the authentication state.
type LockState int

const (
	Unknown LockState = iota
	Locked
	Unlocked
)

func (s LockState) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s LockState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Flags records which announcements have played since the last entry.
type Flags struct {
	LockedAnnounced   bool `json:"locked_announced"`
	UnlockedAnnounced bool `json:"unlocked_announced"`
}

// Gate is the authentication gate.
type Gate struct {
	state   LockState
	flags   Flags
	prompts effect.Prompts
}

// NewGate creates a gate in the Unknown state.
func NewGate(prompts effect.Prompts) *Gate {
	return &Gate{prompts: prompts}
}

// OnAuthSignal records a face-recognition result. Repeating the current
// result does not re-arm the announcement.
func (g *Gate) OnAuthSignal(passed bool) {
	next := Locked
	if passed {
		next = Unlocked
	}
	if next == g.state {
		return
	}
	g.state = next
	g.flags = Flags{}
}

// Reset returns the gate to Unknown, as on re-authentication.
func (g *Gate) Reset() {
	g.state = Unknown
	g.flags = Flags{}
}

// ShouldProcessVoice reports whether voice input may be handled.
func (g *Gate) ShouldProcessVoice() bool {
	return g.state == Unlocked
}

// AnnouncementDue returns the greeting or warning owed for the current
// state and marks it played.
func (g *Gate) AnnouncementDue() (effect.Effect, bool) {
	switch g.state {
	case Unlocked:
		if !g.flags.UnlockedAnnounced {
			g.flags.UnlockedAnnounced = true
			return g.prompts.GreetingEffect(), true
		}
	case Locked:
		if !g.flags.LockedAnnounced {
			g.flags.LockedAnnounced = true
			return g.prompts.WarningEffect(), true
		}
	}
	return effect.Effect{}, false
}

// State returns the lock state.
func (g *Gate) State() LockState {
	return g.state
}

// Flags returns the announcement flags.
func (g *Gate) Flags() Flags {
	return g.flags
}
