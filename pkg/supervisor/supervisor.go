// Package supervisor runs the voice control loop.
//
// Bus listeners update a shared State; a single loop goroutine gates on
// authentication, obtains a transcript (speech or manual override),
// classifies it, applies commands to the task machine and dispatches the
// resulting effects. At most one command is handled per cycle.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yongli3/voice-system/pkg/asr"
	"github.com/yongli3/voice-system/pkg/bus"
	"github.com/yongli3/voice-system/pkg/commands"
	"github.com/yongli3/voice-system/pkg/dispatch"
	"github.com/yongli3/voice-system/pkg/effect"
	"github.com/yongli3/voice-system/pkg/journal"
	"github.com/yongli3/voice-system/pkg/task"
	"github.com/yongli3/voice-system/pkg/transcript"
)

// Mode selects the transcript source.
type Mode string

const (
	ModeVoice  Mode = "voice"
	ModeManual Mode = "manual"
)

// DefaultRate is the control loop frequency in Hz.
const DefaultRate = 10

// ErrNotManual is returned when an override arrives outside manual mode.
var ErrNotManual = errors.New("supervisor: overrides require manual mode")

// Dispatcher runs effect batches.
type Dispatcher interface {
	Dispatch(ctx context.Context, effects []effect.Effect) dispatch.Report
}

// Recorder stores cycle entries.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Config wires a Supervisor.
type Config struct {
	Mode Mode

	// Rate is the loop frequency in Hz.
	Rate float64

	// ListenTimeout bounds one speech session.
	ListenTimeout time.Duration

	Bus        bus.Subscriber
	Topics     *bus.Topics
	Table      *commands.Table
	Matcher    *transcript.Matcher
	Machine    *task.Machine
	Dispatcher Dispatcher

	// Engine is required in voice mode.
	Engine asr.Engine

	// Journal is optional.
	Journal Recorder

	Prompts effect.Prompts
	Logger  *slog.Logger
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeVoice:
		if c.Engine == nil {
			return fmt.Errorf("voice mode requires a speech engine")
		}
	case ModeManual:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Table == nil {
		return fmt.Errorf("command table is required")
	}
	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must be positive, got %v", c.Rate)
	}
	return nil
}

// Stats counts loop activity.
type Stats struct {
	Cycles      int64 `json:"cycles"`
	Transcripts int64 `json:"transcripts"`
	Applied     int64 `json:"applied"`
	Rejected    int64 `json:"rejected"`
	Failures    int64 `json:"failures"`
}

// Snapshot is the supervisor's observable state.
type Snapshot struct {
	View

	Mode      Mode           `json:"mode"`
	Stats     Stats          `json:"stats"`
	LastCycle *journal.Entry `json:"last_cycle,omitempty"`
}

// Supervisor owns the control loop.
type Supervisor struct {
	cfg    Config
	state  *State
	logger *slog.Logger

	cycles      atomic.Int64
	transcripts atomic.Int64
	applied     atomic.Int64
	rejected    atomic.Int64
	failures    atomic.Int64

	mu        sync.RWMutex
	last      *journal.Entry
	observers []func(Snapshot)
}

// New creates a supervisor.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Rate == 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.ListenTimeout == 0 {
		cfg.ListenTimeout = asr.DefaultTimeout
	}
	if cfg.Prompts == (effect.Prompts{}) {
		cfg.Prompts = effect.DefaultPrompts()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Topics == nil {
		cfg.Topics = bus.NewTopics("")
	}
	if cfg.Matcher == nil {
		cfg.Matcher = transcript.NewMatcher(cfg.Table, transcript.DefaultConfig())
	}
	if cfg.Machine == nil {
		cfg.Machine = task.NewMachine(task.WithPrompts(cfg.Prompts))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		state:  newState(cfg.Prompts),
		logger: logger.With("component", "supervisor", "mode", string(cfg.Mode)),
	}, nil
}

// Mode returns the transcript source.
func (s *Supervisor) Mode() Mode {
	return s.cfg.Mode
}

// Table returns the command table.
func (s *Supervisor) Table() *commands.Table {
	return s.cfg.Table
}

// Observe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
func (s *Supervisor) Observe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot returns the current observable state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.RLock()
	var last *journal.Entry
	if s.last != nil {
		e := *s.last
		last = &e
	}
	s.mu.RUnlock()

	return Snapshot{
		Mode: s.cfg.Mode,
		View: s.state.view(),
		Stats: Stats{
			Cycles:      s.cycles.Load(),
			Transcripts: s.transcripts.Load(),
			Applied:     s.applied.Load(),
			Rejected:    s.rejected.Load(),
			Failures:    s.failures.Load(),
		},
		LastCycle: last,
	}
}

func (s *Supervisor) notify() {
	s.mu.RLock()
	observers := append([]func(Snapshot)(nil), s.observers...)
	s.mu.RUnlock()
	if len(observers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range observers {
		fn(snap)
	}
}

// Run subscribes the listeners and drives the loop until ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	subs, err := s.subscribe(ctx)
	if err != nil {
		return err
	}
	defer func() {
		for _, sub := range subs {
			_ = sub.Close()
		}
	}()

	s.logger.Info("control loop started", "rate_hz", s.cfg.Rate, "commands", s.cfg.Table.Len())
	limiter := rate.NewLimiter(rate.Limit(s.cfg.Rate), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			s.logger.Info("control loop stopped")
			return nil
		}
		s.Cycle(ctx)
	}
}

// Cycle runs one pass of the control loop. It returns the journaled entry
// and true when a transcript was handled.
func (s *Supervisor) Cycle(ctx context.Context) (journal.Entry, bool) {
	s.cycles.Add(1)

	ann, due, open := s.state.announcement()
	if due {
		s.logger.Info("authentication announcement", "text", ann.Text)
		s.cfg.Dispatcher.Dispatch(ctx, []effect.Effect{ann})
		s.notify()
	}
	if !open {
		return journal.Entry{}, false
	}

	entry := journal.Entry{
		ID:   uuid.NewString(),
		At:   time.Now(),
		Mode: string(s.cfg.Mode),
	}

	raw, err := s.transcript(ctx)
	if err != nil {
		s.failures.Add(1)
		s.logger.Error("speech session failed", "cycle", entry.ID, "error", err)
		entry.Kind = "none"
		entry.Code = -1
		entry.Outcome = journal.OutcomeFailed
		entry.Reason = err.Error()
		s.finish(ctx, entry)
		return entry, true
	}
	if raw == "" {
		return journal.Entry{}, false
	}
	s.transcripts.Add(1)
	entry.Transcript = raw

	s.handle(ctx, raw, &entry)
	s.finish(ctx, entry)
	return entry, true
}

// transcript obtains the next utterance. An empty string with a nil error
// means there was nothing to handle this cycle.
func (s *Supervisor) transcript(ctx context.Context) (string, error) {
	if s.cfg.Mode == ModeManual {
		code, ok := s.state.takeOverride()
		if !ok {
			return "", nil
		}
		e, ok := s.cfg.Table.FindEntryByCode(code)
		if !ok {
			s.logger.Warn("override code not in command table", "code", code)
			return "", nil
		}
		return s.cfg.Matcher.Address(e.Phrase), nil
	}

	if s.state.isPlaying() {
		return "", nil
	}

	s.cfg.Dispatcher.Dispatch(ctx, []effect.Effect{
		effect.Sound(effect.SoundListen),
		effect.LED(effect.LEDRed),
	})
	text, err := asr.Listen(ctx, s.cfg.Engine, s.cfg.ListenTimeout, s.logger)
	s.cfg.Dispatcher.Dispatch(ctx, []effect.Effect{effect.LED(effect.LEDBlack)})

	if asr.IsTimeout(err) {
		s.logger.Debug("no speech before timeout")
		return "", nil
	}
	return text, err
}

func (s *Supervisor) handle(ctx context.Context, raw string, entry *journal.Entry) {
	res := s.cfg.Matcher.Classify(raw)
	entry.Kind = res.Kind.String()
	entry.Code = -1

	switch {
	case res.Kind.Rejected():
		s.logger.Debug("transcript dropped", "cycle", entry.ID, "kind", res.Kind.String(), "bytes", len(raw))
		entry.Outcome = journal.OutcomeDropped
		return
	case res.Kind == transcript.KindCommand:
		s.command(ctx, res, entry)
		return
	case s.cfg.Mode == ModeManual:
		entry.Outcome = journal.OutcomeDropped
		return
	}

	var effects []effect.Effect
	switch res.Kind {
	case transcript.KindFreeForm:
		s.logger.Info("forwarding free-form text", "cycle", entry.ID, "text", res.Text)
		effects = []effect.Effect{s.cfg.Prompts.WaitEffect(), effect.Converse(res.Text)}
		entry.Outcome = journal.OutcomeForwarded
	default:
		s.logger.Info("unrecognized request", "cycle", entry.ID, "text", res.Text)
		effects = []effect.Effect{s.cfg.Prompts.RetryEffect()}
		entry.Outcome = journal.OutcomeRetry
	}
	s.run(ctx, effects, entry)
}

func (s *Supervisor) command(ctx context.Context, res transcript.Result, entry *journal.Entry) {
	entry.Code = res.Code
	entry.Phrase = res.Phrase

	from, tr, err := s.state.apply(s.cfg.Machine, task.Pending{
		Code:       res.Code,
		Phrase:     res.Phrase,
		Transcript: res.Text,
	})
	entry.From = string(from)
	entry.To = string(tr.Next)

	if err != nil {
		s.rejected.Add(1)
		entry.Outcome = journal.OutcomeRejected
		var rej *task.RejectedError
		if errors.As(err, &rej) {
			entry.Reason = rej.Reason
		} else {
			entry.Reason = err.Error()
		}
		s.logger.Warn("command rejected", "cycle", entry.ID, "code", res.Code, "phrase", res.Phrase, "error", err)
		return
	}

	s.applied.Add(1)
	entry.Outcome = journal.OutcomeApplied
	s.logger.Info("command applied",
		"cycle", entry.ID,
		"code", res.Code,
		"phrase", res.Phrase,
		"from", from,
		"to", tr.Next,
		"reset_auth", tr.ResetAuth,
	)
	s.run(ctx, tr.Effects, entry)
}

func (s *Supervisor) run(ctx context.Context, effects []effect.Effect, entry *journal.Entry) {
	rep := s.cfg.Dispatcher.Dispatch(ctx, effects)
	entry.Effects = len(effects)
	entry.Failed = rep.Failed
}

func (s *Supervisor) finish(ctx context.Context, entry journal.Entry) {
	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Record(ctx, entry); err != nil {
			s.logger.Warn("failed to journal cycle", "cycle", entry.ID, "error", err)
		}
	}
	s.mu.Lock()
	s.last = &entry
	s.mu.Unlock()
	s.notify()
}
