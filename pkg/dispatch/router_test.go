package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yongli3/voice-system/pkg/bus"
	"github.com/yongli3/voice-system/pkg/detect"
	"github.com/yongli3/voice-system/pkg/effect"
)

type fakeSpeaker struct {
	said []string
	err  error
}

func (s *fakeSpeaker) Say(_ context.Context, text string) error {
	s.said = append(s.said, text)
	return s.err
}

type fakeClips struct {
	played []string
	err    error
}

func (c *fakeClips) Play(_ context.Context, clip string) error {
	c.played = append(c.played, clip)
	return c.err
}

type fakeDetector struct {
	results map[string]detect.Result
	err     error
	queried []string
}

func (d *fakeDetector) Detect(_ context.Context, name string) (detect.Result, error) {
	d.queried = append(d.queried, name)
	if d.err != nil {
		return detect.Result{}, d.err
	}
	return d.results[name], nil
}

type fixture struct {
	bus      *bus.Memory
	speaker  *fakeSpeaker
	clips    *fakeClips
	detector *fakeDetector
	router   *Router
}

func newFixture(manual bool) *fixture {
	f := &fixture{
		bus:      bus.NewMemory(),
		speaker:  &fakeSpeaker{},
		clips:    &fakeClips{},
		detector: &fakeDetector{results: map[string]detect.Result{}},
	}
	f.router = NewRouter(Config{
		Publisher: f.bus,
		Speaker:   f.speaker,
		Clips:     f.clips,
		Detector:  f.detector,
		Prompts:   effect.DefaultPrompts(),
		Manual:    manual,
	})
	return f
}

func intsOn(t *testing.T, b *bus.Memory, topic string) []int {
	t.Helper()
	var out []int
	for _, m := range b.Published(topic) {
		v, err := m.Int()
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestDispatch_PublishesInOrder(t *testing.T) {
	f := newFixture(false)
	twist := effect.Twist{Linear: effect.Vector3{X: 0.3}}

	rep := f.router.Dispatch(context.Background(), []effect.Effect{
		effect.Sound(effect.SoundListen),
		effect.LED(effect.LEDRed),
		effect.Velocity(twist),
		effect.Subsystem(1),
		effect.Converse("今天天气"),
		effect.LED(effect.LEDBlack),
	})

	assert.True(t, rep.OK())
	assert.Equal(t, 6, rep.Executed)

	all := f.bus.All()
	require.Len(t, all, 6)
	topics := make([]string, len(all))
	for i, m := range all {
		topics[i] = m.Topic
	}
	assert.Equal(t, []string{
		bus.TopicSound, bus.TopicLED, bus.TopicVelocity,
		bus.TopicCommand, bus.TopicConverse, bus.TopicLED,
	}, topics)

	assert.Equal(t, []int{3, 0}, intsOn(t, f.bus, bus.TopicLED))
	assert.Equal(t, []int{1}, intsOn(t, f.bus, bus.TopicCommand))

	var got bus.Twist
	require.NoError(t, f.bus.Published(bus.TopicVelocity)[0].ParseData(&got))
	assert.Equal(t, 0.3, got.Linear.X)

	var text bus.String
	require.NoError(t, f.bus.Published(bus.TopicConverse)[0].ParseData(&text))
	assert.Equal(t, "今天天气", text.Data)
}

func TestDispatch_SayUsesSpeakerInVoiceMode(t *testing.T) {
	f := newFixture(false)
	p := effect.DefaultPrompts()

	rep := f.router.Dispatch(context.Background(), []effect.Effect{
		p.Ack(1, "开始定位"),
		p.RetryEffect(),
	})

	assert.True(t, rep.OK())
	assert.Equal(t, []string{"执行命令 开始定位", "请再说一遍"}, f.speaker.said)
	assert.Empty(t, f.clips.played)
}

func TestDispatch_SayUsesClipsInManualMode(t *testing.T) {
	f := newFixture(true)
	p := effect.DefaultPrompts()

	rep := f.router.Dispatch(context.Background(), []effect.Effect{
		p.Ack(7, "张开手"),
		p.WaitEffect(),
		p.GreetingEffect(),
	})

	assert.Equal(t, 2, rep.Executed)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, []string{"7", effect.ClipUnlocked}, f.clips.played)
	assert.Empty(t, f.speaker.said)
}

func TestDispatch_FailuresDoNotStopBatch(t *testing.T) {
	f := newFixture(false)
	f.speaker.err = errors.New("device busy")

	rep := f.router.Dispatch(context.Background(), []effect.Effect{
		effect.Stop(),
		effect.Say("执行命令 停止", ""),
		effect.Subsystem(0),
	})

	assert.False(t, rep.OK())
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.Executed)
	assert.Equal(t, []int{0}, intsOn(t, f.bus, bus.TopicCommand))
}

func TestDispatch_DetectFound(t *testing.T) {
	f := newFixture(false)
	f.detector.results["bottle"] = detect.Result{X: 0.2, Y: 0.1, Z: 0.3, Found: true}

	rep := f.router.Dispatch(context.Background(), []effect.Effect{effect.Detect("bottle")})

	assert.True(t, rep.OK())
	assert.Equal(t, []string{"已找到"}, f.speaker.said)

	arm := f.bus.Published(bus.TopicArmTarget)
	require.Len(t, arm, 1)
	var target bus.Float32Array
	require.NoError(t, arm[0].ParseData(&target))
	assert.InDeltaSlice(t, []float32{0.2, 0.1, 0.3}, target.Data, 1e-6)
}

func TestDispatch_DetectNotFound(t *testing.T) {
	f := newFixture(false)

	f.router.Dispatch(context.Background(), []effect.Effect{effect.Detect("cup"), effect.Detect("chair")})

	assert.Equal(t, []string{"cup", "chair"}, f.detector.queried)
	assert.Equal(t, []string{"未找到", "未找到"}, f.speaker.said)
	assert.Empty(t, f.bus.Published(bus.TopicArmTarget))
}

func TestDispatch_DetectErrorCountsAsNotFound(t *testing.T) {
	f := newFixture(true)
	f.detector.err = errors.New("connection refused")

	rep := f.router.Dispatch(context.Background(), []effect.Effect{effect.Detect("bag")})

	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, []string{effect.ClipNotFound}, f.clips.played)
	assert.Empty(t, f.bus.Published(bus.TopicArmTarget))
}

func TestDispatch_MissingCollaborators(t *testing.T) {
	r := NewRouter(Config{Prompts: effect.DefaultPrompts()})

	rep := r.Dispatch(context.Background(), []effect.Effect{
		effect.Subsystem(1),
		effect.Say("你好", ""),
	})

	assert.Equal(t, 2, rep.Failed)
	for _, err := range rep.Errors {
		assert.ErrorIs(t, err, ErrNotConfigured)
	}
}

func TestDispatch_SettleHonorsContext(t *testing.T) {
	f := newFixture(false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	rep := f.router.Dispatch(ctx, []effect.Effect{effect.Settle(time.Minute)})

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, rep.Errors, 1)
	assert.ErrorIs(t, rep.Errors[0], context.Canceled)
}

func TestDispatch_Settle(t *testing.T) {
	f := newFixture(false)
	start := time.Now()
	rep := f.router.Dispatch(context.Background(), []effect.Effect{effect.Settle(20 * time.Millisecond)})

	assert.True(t, rep.OK())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
