package supervisor

import (
	"sync"

	"github.com/yongli3/voice-system/pkg/auth"
	"github.com/yongli3/voice-system/pkg/effect"
	"github.com/yongli3/voice-system/pkg/task"
)

// State is everything the listeners and the control loop share.
type State struct {
	mu sync.Mutex

	task     task.State
	gate     *auth.Gate
	override *int
	playing  bool
}

func newState(prompts effect.Prompts) *State {
	return &State{
		task: task.StateIdle,
		gate: auth.NewGate(prompts),
	}
}

// View is a copy of State.
type View struct {
	Task     task.State     `json:"task"`
	Lock     auth.LockState `json:"lock"`
	Flags    auth.Flags     `json:"flags"`
	Override *int           `json:"override,omitempty"`
	Playing  bool           `json:"playing"`
}

func (s *State) view() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Task:    s.task,
		Lock:    s.gate.State(),
		Flags:   s.gate.Flags(),
		Playing: s.playing,
	}
	if s.override != nil {
		code := *s.override
		v.Override = &code
	}
	return v
}

func (s *State) authSignal(passed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate.OnAuthSignal(passed)
}

// announcement returns the announcement owed, if any, and whether voice
// input may be handled.
func (s *State) announcement() (e effect.Effect, due, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, due = s.gate.AnnouncementDue()
	return e, due, s.gate.ShouldProcessVoice()
}

func (s *State) setOverride(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = &code
}

func (s *State) takeOverride() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override == nil {
		return 0, false
	}
	code := *s.override
	s.override = nil
	return code, true
}

func (s *State) setPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
}

func (s *State) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// taskResult applies a subsystem report and returns the old and new state.
func (s *State) taskResult(code int) (from, to task.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from = s.task
	if fault, ok := task.FaultState(code); ok {
		s.task = fault
	} else {
		s.task = task.StateIdle
	}
	return from, s.task
}

// apply runs a command through m and commits the result. The gate reset a
// transition asks for happens here, before any effect runs.
func (s *State) apply(m *task.Machine, p task.Pending) (from task.State, tr task.Transition, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from = s.task
	tr, err = m.Apply(from, p)
	if err != nil {
		return from, task.Transition{Next: from}, err
	}
	if tr.ResetAuth {
		s.gate.Reset()
	}
	s.task = tr.Next
	return from, tr, nil
}
