package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/yongli3/voice-system/internal/config"
	"github.com/yongli3/voice-system/internal/log"
	"github.com/yongli3/voice-system/pkg/asr"
	"github.com/yongli3/voice-system/pkg/bus"
	"github.com/yongli3/voice-system/pkg/commands"
	"github.com/yongli3/voice-system/pkg/detect"
	"github.com/yongli3/voice-system/pkg/dispatch"
	"github.com/yongli3/voice-system/pkg/effect"
	"github.com/yongli3/voice-system/pkg/journal"
	"github.com/yongli3/voice-system/pkg/playback"
	"github.com/yongli3/voice-system/pkg/supervisor"
	"github.com/yongli3/voice-system/pkg/task"
	"github.com/yongli3/voice-system/pkg/transcript"
	"github.com/yongli3/voice-system/pkg/tts"
	"github.com/yongli3/voice-system/pkg/web"
)

const healthTimeout = 5 * time.Second

// app holds the wired components and everything that needs closing.
type app struct {
	logger     *slog.Logger
	supervisor *supervisor.Supervisor
	dashboard  *web.Server
	closers    []io.Closer
}

func newApp(cfg *config.Config) (_ *app, err error) {
	logCloser := log.Init(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	a := &app{logger: log.L(), closers: []io.Closer{logCloser}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	mode := supervisor.ModeVoice
	if cfg.Manual() {
		mode = supervisor.ModeManual
	}
	a.logger.Info("starting voice supervisor", "mode", mode, "bus", cfg.Bus)

	// A bad command table is not fatal; the robot still authenticates and
	// answers free-form questions.
	table, terr := commands.LoadFile(cfg.CommandsFile, a.logger)
	if terr != nil {
		a.logger.Error("command table unavailable, continuing with no commands", "error", terr)
		table = commands.New()
	}

	b, err := newBus(cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, b)

	prompts := effect.DefaultPrompts()
	catalog := detect.NewCatalog()
	detector, err := detect.NewClient(detect.Config{
		URL:     cfg.Detect.URL,
		Timeout: cfg.Detect.Timeout,
		Logger:  a.logger,
	})
	if err != nil {
		return nil, err
	}

	router := dispatch.NewRouter(dispatch.Config{
		Publisher: b,
		Topics:    bus.NewTopics(cfg.TopicPrefix),
		Speaker:   a.newSpeaker(cfg),
		Clips:     playback.NewClipPlayer(cfg.ClipDir, playback.WithCommand(cfg.ClipPlayer)),
		Detector:  detector,
		Prompts:   prompts,
		Manual:    mode == supervisor.ModeManual,
		Logger:    a.logger,
	})

	var engine asr.Engine
	if mode == supervisor.ModeVoice {
		wcfg := asr.DefaultWebsocketConfig()
		wcfg.URL = cfg.ASR.URL
		wcfg.AppID = cfg.ASR.AppID
		wcfg.APIKey = cfg.ASR.APIKey
		wcfg.Language = cfg.ASR.Language
		engine, err = asr.NewWebsocketEngine(wcfg, a.logger)
		if err != nil {
			return nil, err
		}
	}

	var recorder supervisor.Recorder
	var history web.History
	if cfg.JournalPath != "" {
		j, jerr := journal.Open(cfg.JournalPath)
		if jerr != nil {
			a.logger.Warn("journal unavailable", "path", cfg.JournalPath, "error", jerr)
		} else {
			a.closers = append(a.closers, j)
			recorder, history = j, j
		}
	}

	mcfg := transcript.DefaultConfig()
	mcfg.WakePrefix = cfg.WakePrefix
	mcfg.MinLength = cfg.MinLength
	mcfg.MaxLength = cfg.MaxLength

	a.supervisor, err = supervisor.New(supervisor.Config{
		Mode:          mode,
		Rate:          cfg.RateHz,
		ListenTimeout: cfg.ListenWait,
		Bus:           b,
		Topics:        bus.NewTopics(cfg.TopicPrefix),
		Table:         table,
		Matcher:       transcript.NewMatcher(table, mcfg),
		Machine: task.NewMachine(
			task.WithObjects(catalog),
			task.WithSettleDelay(cfg.SettleDelay),
			task.WithPrompts(prompts),
		),
		Dispatcher: router,
		Engine:     engine,
		Journal:    recorder,
		Prompts:    prompts,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}

	a.dashboard, err = web.NewServer(web.Config{
		Addr:       cfg.DashboardAddr,
		Controller: a.supervisor,
		History:    history,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newBus(cfg *config.Config, logger *slog.Logger) (bus.Bus, error) {
	switch cfg.Bus {
	case "memory":
		logger.Warn("using in-process bus, no robot traffic will be exchanged")
		return bus.NewMemory(), nil
	default:
		rcfg := bus.DefaultRedisConfig()
		rcfg.Addr = cfg.Redis.Addr
		rcfg.Password = cfg.Redis.Password
		rcfg.DB = cfg.Redis.DB
		r, err := bus.NewRedis(context.Background(), rcfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect bus: %w", err)
		}
		return r, nil
	}
}

// newSpeaker returns nil when synthesis is not configured; Say effects then
// fail and are logged by the router.
func (a *app) newSpeaker(cfg *config.Config) dispatch.Speaker {
	logger := a.logger
	if cfg.TTS.APIKey == "" {
		if !cfg.Manual() {
			logger.Warn("OPENAI_API_KEY not set, spoken replies disabled")
		}
		return nil
	}
	provider, err := tts.NewOpenAI(
		tts.WithAPIKey(cfg.TTS.APIKey),
		tts.WithBaseURL(cfg.TTS.BaseURL),
		tts.WithVoice(cfg.TTS.Voice),
		tts.WithModel(cfg.TTS.Model),
		tts.WithSpeed(cfg.TTS.Speed),
		tts.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("speech synthesis unavailable", "error", err)
		return nil
	}
	a.closers = append(a.closers, provider)

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	if err := provider.Health(ctx); err != nil {
		logger.Warn("speech synthesis health check failed", "error", err)
	}
	return playback.NewSpeaker(provider, playback.NewPulseSink("voice-supervisor"), logger)
}

// Run starts the dashboard and the control loop and blocks until ctx is
// done or either fails.
func (a *app) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				a.logger.Error("component stopped", "component", name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancel()
			}
		}()
	}
	run("dashboard", a.dashboard.Run)
	run("supervisor", a.supervisor.Run)

	wg.Wait()
	a.logger.Info("voice supervisor stopped")
	return errors.Join(errs...)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
