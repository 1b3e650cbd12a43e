package supervisor

import (
	"context"
	"fmt"

	"github.com/yongli3/voice-system/pkg/bus"
)

// OnAuth records a face-authentication result.
func (s *Supervisor) OnAuth(passed bool) {
	s.state.authSignal(passed)
	s.logger.Debug("auth signal", "passed", passed)
	s.notify()
}

// Override queues a command code for the next manual cycle. A newer
// override replaces one not yet consumed.
func (s *Supervisor) Override(code int) error {
	if s.cfg.Mode != ModeManual {
		return ErrNotManual
	}
	s.state.setOverride(code)
	s.logger.Info("override queued", "code", code)
	s.notify()
	return nil
}

// OnPlayback records whether the external player is speaking.
func (s *Supervisor) OnPlayback(playing bool) {
	s.state.setPlaying(playing)
	s.notify()
}

// OnTaskResult applies a subsystem report: a fault code enters the
// matching error state, anything else marks the task finished.
func (s *Supervisor) OnTaskResult(code int) {
	from, to := s.state.taskResult(code)
	if to.IsError() {
		s.logger.Warn("subsystem fault", "code", code, "from", from, "to", to)
	} else {
		s.logger.Info("subsystem finished", "code", code, "from", from)
	}
	s.notify()
}

func (s *Supervisor) subscribe(ctx context.Context) ([]bus.Subscription, error) {
	if s.cfg.Bus == nil {
		return nil, fmt.Errorf("no bus to subscribe to")
	}
	t := s.cfg.Topics
	handlers := []struct {
		topic string
		fn    func(int)
	}{
		{t.FaceAuth(), func(v int) { s.OnAuth(v == 1) }},
		{t.ManualControl(), func(v int) {
			if err := s.Override(v); err != nil {
				s.logger.Debug("override ignored", "code", v, "error", err)
			}
		}},
		{t.Playing(), func(v int) { s.OnPlayback(v == 1) }},
		{t.TaskResult(), s.OnTaskResult},
	}

	subs := make([]bus.Subscription, 0, len(handlers))
	for _, h := range handlers {
		sub, err := s.cfg.Bus.Subscribe(ctx, h.topic, s.intHandler(h.topic, h.fn))
		if err != nil {
			for _, prev := range subs {
				_ = prev.Close()
			}
			return nil, fmt.Errorf("subscribe %s: %w", h.topic, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *Supervisor) intHandler(topic string, fn func(int)) bus.Handler {
	return func(msg *bus.Message) {
		v, err := msg.Int()
		if err != nil {
			s.logger.Warn("malformed message", "topic", topic, "error", err)
			return
		}
		fn(v)
	}
}
