// Package effect defines the outbound actions produced by a supervisor cycle.
//
// An Effect is a tagged variant: Kind selects which of the payload fields
// are meaningful. Effects are plain values so transitions can be compared
// in tests. The journal records only how many ran; String renders one for
// logs.
package effect

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies an effect variant.
type Kind int

const (
	KindVelocity Kind = iota + 1
	KindLED
	KindSound
	KindSubsystem
	KindSay
	KindDetect
	KindArmTarget
	KindConverse
	KindSettle
)

var kindNames = map[Kind]string{
	KindVelocity:  "velocity",
	KindLED:       "led",
	KindSound:     "sound",
	KindSubsystem: "subsystem",
	KindSay:       "say",
	KindDetect:    "detect",
	KindArmTarget: "arm_target",
	KindConverse:  "converse",
	KindSettle:    "settle",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Vector3 is a 3-component vector.
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

// Twist is a velocity command: linear and angular components.
type Twist struct {
	Linear  Vector3
	Angular Vector3
}

// IsZero reports whether every component is zero.
func (t Twist) IsZero() bool {
	return t == Twist{}
}

// LED colors understood by the mobile base.
const (
	LEDBlack  = 0
	LEDGreen  = 1
	LEDOrange = 2
	LEDRed    = 3
)

// SoundListen is the base's "on" beep, played before capturing speech.
const SoundListen = 1

// Effect is one outbound action.
type Effect struct {
	Kind Kind

	// Velocity
	Twist Twist

	// LED, Sound, Subsystem
	Value int

	// Say: Text is synthesized; Clip names the canned recording played in
	// manual mode instead.
	Text string
	Clip string

	// Detect
	Object string

	// ArmTarget
	Target Vector3

	// Settle
	Delay time.Duration
}

// String renders the effect for logs.
func (e Effect) String() string {
	switch e.Kind {
	case KindVelocity:
		return fmt.Sprintf("velocity(lx=%.2f az=%.2f)", e.Twist.Linear.X, e.Twist.Angular.Z)
	case KindLED, KindSound, KindSubsystem:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Value)
	case KindSay:
		return fmt.Sprintf("say(%q clip=%q)", e.Text, e.Clip)
	case KindDetect:
		return fmt.Sprintf("detect(%s)", e.Object)
	case KindArmTarget:
		return fmt.Sprintf("arm_target(%.3f,%.3f,%.3f)", e.Target.X, e.Target.Y, e.Target.Z)
	case KindConverse:
		return fmt.Sprintf("converse(%q)", e.Text)
	case KindSettle:
		return fmt.Sprintf("settle(%s)", e.Delay)
	default:
		return e.Kind.String()
	}
}

// Velocity publishes a twist on the base.
func Velocity(t Twist) Effect {
	return Effect{Kind: KindVelocity, Twist: t}
}

// Stop publishes a zero twist.
func Stop() Effect {
	return Velocity(Twist{})
}

// LED sets the base indicator LED.
func LED(color int) Effect {
	return Effect{Kind: KindLED, Value: color}
}

// Sound plays one of the base's built-in sounds.
func Sound(value int) Effect {
	return Effect{Kind: KindSound, Value: value}
}

// Subsystem publishes a task-control code for the subsystem processes.
func Subsystem(code int) Effect {
	return Effect{Kind: KindSubsystem, Value: code}
}

// Say speaks text, or plays clip in manual mode.
func Say(text, clip string) Effect {
	return Effect{Kind: KindSay, Text: text, Clip: clip}
}

// Detect queries the detection service for object.
func Detect(object string) Effect {
	return Effect{Kind: KindDetect, Object: object}
}

// ArmTarget publishes coordinates for the arm to reach.
func ArmTarget(v Vector3) Effect {
	return Effect{Kind: KindArmTarget, Target: v}
}

// Converse forwards free-form text to the conversational responder.
func Converse(text string) Effect {
	return Effect{Kind: KindConverse, Text: text}
}

// Settle waits before running the next effect.
func Settle(d time.Duration) Effect {
	return Effect{Kind: KindSettle, Delay: d}
}

// CodeClip returns the canned clip id for a command code.
func CodeClip(code int) string {
	return strconv.Itoa(code)
}
