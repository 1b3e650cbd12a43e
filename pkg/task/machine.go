package task

import (
	"fmt"
	"time"

	"github.com/yongli3/voice-system/pkg/effect"
)

// DefaultSettleDelay lets running tasks wind down before authentication
// starts again.
const DefaultSettleDelay = time.Second

// Velocities for the movement family, keyed by command code.
var Velocities = map[int]effect.Twist{
	300: {Angular: effect.Vector3{Z: 1.9}},
	400: {Angular: effect.Vector3{Z: -1.9}},
	500: {Linear: effect.Vector3{X: 0.3}},
	501: {Linear: effect.Vector3{X: 0.3}},
	600: {Linear: effect.Vector3{X: -0.3}},
	601: {Linear: effect.Vector3{X: -0.3}},
}

// ObjectMatcher finds the catalog objects mentioned in a transcript, in
// catalog order.
type ObjectMatcher interface {
	Match(text string) []string
}

// Pending is a classified command awaiting its transition.
type Pending struct {
	Code   int
	Phrase string

	// Transcript is the utterance with the wake prefix removed.
	Transcript string
}

// Transition is the result of an accepted command.
type Transition struct {
	Next    State
	Effects []effect.Effect

	// ResetAuth asks the caller to return the authentication gate to its
	// unknown state before running Effects.
	ResetAuth bool
}

// Config holds machine configuration.
type Config struct {
	Objects     ObjectMatcher
	SettleDelay time.Duration
	Prompts     effect.Prompts
}

// Option configures a Machine.
type Option func(*Config)

// WithObjects sets the catalog used by the recognition family.
func WithObjects(m ObjectMatcher) Option {
	return func(c *Config) {
		c.Objects = m
	}
}

// WithSettleDelay sets the pause between stopping tasks and starting
// authentication.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) {
		c.SettleDelay = d
	}
}

// WithPrompts overrides the spoken prompt catalog.
func WithPrompts(p effect.Prompts) Option {
	return func(c *Config) {
		c.Prompts = p
	}
}

// Machine applies commands to task states. It holds no state of its own;
// the current state is passed in and the next one returned, so a Machine
// is safe for concurrent use.
type Machine struct {
	cfg   Config
	rules map[Kind]rule
}

// rule validates cmd against the current state and builds the transition.
// ack is the acknowledgement effect, nil for silent commands.
type rule func(m *Machine, current State, cmd Command, p Pending, ack []effect.Effect) (Transition, error)

// NewMachine creates a machine.
func NewMachine(opts ...Option) *Machine {
	cfg := Config{
		SettleDelay: DefaultSettleDelay,
		Prompts:     effect.DefaultPrompts(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Machine{
		cfg: cfg,
		rules: map[Kind]rule{
			KindStop:            ruleStop,
			KindStartLocalizing: startFromIdle(StateLocalizing, CodeStartLocalizing),
			KindStopLocalizing:  stopRunning(StateLocalizing, CodeStopLocalizing),
			KindStartMapping:    startFromIdle(StateMapping, CodeStartMapping),
			KindStopMapping:     stopRunning(StateMapping, CodeStopMapping),
			KindReauthenticate:  ruleReauthenticate,
			KindArmMove:         ruleArmMove,
			KindOpenHand:        ruleOpenHand,
			KindCloseHand:       ruleCloseHand,
			KindRecognize:       ruleRecognize,
			KindMove:            ruleMove,
		},
	}
}

// Apply validates p against current and returns the transition.
// A rejected command returns a *RejectedError and no effects; the caller
// keeps current.
func (m *Machine) Apply(current State, p Pending) (Transition, error) {
	cmd := Decode(p.Code)
	r, ok := m.rules[cmd.Kind]
	if !ok {
		return Transition{}, reject(p.Code, current, ReasonUnknown)
	}

	var ack []effect.Effect
	if !cmd.Silent {
		ack = []effect.Effect{m.cfg.Prompts.Ack(p.Code, p.Phrase)}
	}
	return r(m, current, cmd, p, ack)
}

func ruleStop(_ *Machine, _ State, _ Command, _ Pending, ack []effect.Effect) (Transition, error) {
	effects := []effect.Effect{effect.Stop()}
	effects = append(effects, ack...)
	effects = append(effects, effect.Subsystem(CodeStop))
	return Transition{Next: StateIdle, Effects: effects}, nil
}

func startFromIdle(next State, code int) rule {
	return func(_ *Machine, current State, cmd Command, _ Pending, ack []effect.Effect) (Transition, error) {
		if current != StateIdle {
			return Transition{}, reject(cmd.Code, current, ReasonBusy)
		}
		return Transition{Next: next, Effects: append(ack, effect.Subsystem(code))}, nil
	}
}

func stopRunning(running State, code int) rule {
	return func(_ *Machine, current State, cmd Command, _ Pending, ack []effect.Effect) (Transition, error) {
		if current != running {
			return Transition{}, reject(cmd.Code, current, ReasonNotRunning)
		}
		return Transition{Next: StateIdle, Effects: append(ack, effect.Subsystem(code))}, nil
	}
}

func ruleReauthenticate(m *Machine, current State, _ Command, _ Pending, ack []effect.Effect) (Transition, error) {
	effects := ack
	switch current {
	case StateLocalizing:
		effects = append(effects, effect.Subsystem(CodeStopLocalizing))
	case StateMapping:
		effects = append(effects, effect.Subsystem(CodeStopMapping))
	}
	effects = append(effects,
		effect.Settle(m.cfg.SettleDelay),
		effect.Subsystem(CodeAuthenticate),
	)
	return Transition{Next: StateIdle, Effects: effects, ResetAuth: true}, nil
}

func ruleArmMove(_ *Machine, current State, _ Command, _ Pending, ack []effect.Effect) (Transition, error) {
	return Transition{Next: current, Effects: append(ack, effect.Subsystem(CodeArmMove))}, nil
}

func ruleOpenHand(_ *Machine, current State, cmd Command, _ Pending, ack []effect.Effect) (Transition, error) {
	if current == StateArmOpen {
		return Transition{}, reject(cmd.Code, current, ReasonAlreadyOpen)
	}
	return Transition{Next: StateArmOpen, Effects: append(ack, effect.Subsystem(CodeOpenHand))}, nil
}

func ruleCloseHand(_ *Machine, current State, cmd Command, _ Pending, ack []effect.Effect) (Transition, error) {
	if current != StateArmOpen {
		return Transition{}, reject(cmd.Code, current, ReasonNotOpen)
	}
	return Transition{Next: StateArmClosed, Effects: append(ack, effect.Subsystem(CodeCloseHand))}, nil
}

func ruleRecognize(m *Machine, current State, _ Command, p Pending, ack []effect.Effect) (Transition, error) {
	effects := ack
	if m.cfg.Objects != nil {
		for _, name := range m.cfg.Objects.Match(p.Transcript) {
			effects = append(effects, effect.Detect(name))
		}
	}
	return Transition{Next: current, Effects: effects}, nil
}

func ruleMove(_ *Machine, current State, cmd Command, _ Pending, ack []effect.Effect) (Transition, error) {
	if current.OwnsMotors() {
		return Transition{}, reject(cmd.Code, current, fmt.Sprintf(reasonCannotMove, current))
	}
	return Transition{Next: StateIdle, Effects: append(ack, effect.Velocity(Velocities[cmd.Code]))}, nil
}
