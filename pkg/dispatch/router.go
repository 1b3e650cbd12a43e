// Package dispatch runs effect batches against the robot's collaborators.
//
// Every effect is one external call. Calls are not retried; a failure is
// logged and counted, and the rest of the batch still runs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yongli3/voice-system/pkg/bus"
	"github.com/yongli3/voice-system/pkg/detect"
	"github.com/yongli3/voice-system/pkg/effect"
)

// Speaker speaks synthesized text.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// ClipPlayer plays a canned clip by id.
type ClipPlayer interface {
	Play(ctx context.Context, clip string) error
}

// ErrNotConfigured is returned for effects whose collaborator is missing.
var ErrNotConfigured = errors.New("dispatch: collaborator not configured")

// Report summarizes one batch.
type Report struct {
	Executed int
	Failed   int
	Skipped  int
	Errors   []error
}

// OK reports whether every effect succeeded.
func (r Report) OK() bool {
	return r.Failed == 0
}

func (r *Report) add(err error) {
	if err != nil {
		r.Failed++
		r.Errors = append(r.Errors, err)
		return
	}
	r.Executed++
}

// Config holds the router's collaborators.
type Config struct {
	Publisher bus.Publisher
	Topics    *bus.Topics
	Speaker   Speaker
	Clips     ClipPlayer
	Detector  detect.Detector
	Prompts   effect.Prompts

	// Manual plays canned clips instead of synthesizing speech.
	Manual bool

	Logger *slog.Logger
}

// Router executes effects.
type Router struct {
	cfg    Config
	logger *slog.Logger
}

// NewRouter creates a router.
func NewRouter(cfg Config) *Router {
	if cfg.Topics == nil {
		cfg.Topics = bus.NewTopics("")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, logger: logger.With("component", "dispatch")}
}

// Manual reports whether the router plays clips instead of speech.
func (r *Router) Manual() bool {
	return r.cfg.Manual
}

// Dispatch runs effects in order.
func (r *Router) Dispatch(ctx context.Context, effects []effect.Effect) Report {
	var rep Report
	for _, e := range effects {
		r.run(ctx, e, &rep)
	}
	if rep.Failed > 0 {
		r.logger.Warn("batch finished with failures",
			"executed", rep.Executed,
			"failed", rep.Failed,
			"error", errors.Join(rep.Errors...),
		)
	}
	return rep
}

func (r *Router) run(ctx context.Context, e effect.Effect, rep *Report) {
	r.logger.Debug("dispatching effect", "effect", e.String())

	switch e.Kind {
	case effect.KindVelocity:
		rep.add(r.publish(ctx, r.cfg.Topics.Velocity(), toTwist(e.Twist)))
	case effect.KindLED:
		rep.add(r.publish(ctx, r.cfg.Topics.LED(), bus.Int32{Data: int32(e.Value)}))
	case effect.KindSound:
		rep.add(r.publish(ctx, r.cfg.Topics.Sound(), bus.Int32{Data: int32(e.Value)}))
	case effect.KindSubsystem:
		rep.add(r.publish(ctx, r.cfg.Topics.Command(), bus.Int32{Data: int32(e.Value)}))
	case effect.KindArmTarget:
		rep.add(r.publish(ctx, r.cfg.Topics.ArmTarget(), bus.Float32Array{
			Data: []float32{float32(e.Target.X), float32(e.Target.Y), float32(e.Target.Z)},
		}))
	case effect.KindConverse:
		rep.add(r.publish(ctx, r.cfg.Topics.Converse(), bus.String{Data: e.Text}))
	case effect.KindSay:
		r.say(ctx, e, rep)
	case effect.KindDetect:
		r.detect(ctx, e, rep)
	case effect.KindSettle:
		rep.add(settle(ctx, e.Delay))
	default:
		rep.add(fmt.Errorf("unknown effect %s", e.Kind))
	}
}

func (r *Router) publish(ctx context.Context, topic string, payload any) error {
	if r.cfg.Publisher == nil {
		return fmt.Errorf("publish %s: %w", topic, ErrNotConfigured)
	}
	if err := r.cfg.Publisher.Publish(ctx, topic, payload); err != nil {
		r.logger.Error("publish failed", "topic", topic, "error", err)
		return err
	}
	return nil
}

func (r *Router) say(ctx context.Context, e effect.Effect, rep *Report) {
	if r.cfg.Manual {
		if e.Clip == "" {
			rep.Skipped++
			return
		}
		if r.cfg.Clips == nil {
			rep.add(fmt.Errorf("play %s: %w", e.Clip, ErrNotConfigured))
			return
		}
		err := r.cfg.Clips.Play(ctx, e.Clip)
		if err != nil {
			r.logger.Warn("clip playback failed", "clip", e.Clip, "error", err)
		}
		rep.add(err)
		return
	}

	if r.cfg.Speaker == nil {
		rep.add(fmt.Errorf("say %q: %w", e.Text, ErrNotConfigured))
		return
	}
	err := r.cfg.Speaker.Say(ctx, e.Text)
	if err != nil {
		r.logger.Warn("speech failed", "text", e.Text, "error", err)
	}
	rep.add(err)
}

// detect queries one object and reports the outcome. A failed query
// counts as not found.
func (r *Router) detect(ctx context.Context, e effect.Effect, rep *Report) {
	var (
		res detect.Result
		err error
	)
	if r.cfg.Detector == nil {
		err = fmt.Errorf("detect %s: %w", e.Object, ErrNotConfigured)
	} else {
		res, err = r.cfg.Detector.Detect(ctx, e.Object)
	}
	if err != nil {
		r.logger.Warn("detection failed, treating as not found", "object", e.Object, "error", err)
	}
	rep.add(err)

	if err != nil || !res.Found {
		r.run(ctx, r.cfg.Prompts.NotFoundEffect(), rep)
		return
	}
	r.logger.Info("object found", "object", e.Object, "x", res.X, "y", res.Y, "z", res.Z)
	r.run(ctx, r.cfg.Prompts.FoundEffect(), rep)
	r.run(ctx, effect.ArmTarget(effect.Vector3{X: res.X, Y: res.Y, Z: res.Z}), rep)
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toTwist(t effect.Twist) bus.Twist {
	return bus.Twist{
		Linear:  bus.Vector3{X: t.Linear.X, Y: t.Linear.Y, Z: t.Linear.Z},
		Angular: bus.Vector3{X: t.Angular.X, Y: t.Angular.Y, Z: t.Angular.Z},
	}
}
