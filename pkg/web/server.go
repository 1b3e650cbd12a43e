// Package web serves the supervisor dashboard: a JSON API plus a
// websocket status feed.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/yongli3/voice-system/pkg/commands"
	"github.com/yongli3/voice-system/pkg/hub"
	"github.com/yongli3/voice-system/pkg/journal"
	"github.com/yongli3/voice-system/pkg/supervisor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Controller is the supervisor surface the dashboard uses.
type Controller interface {
	Snapshot() supervisor.Snapshot
	Table() *commands.Table
	Override(code int) error
	Observe(fn func(supervisor.Snapshot))
}

// History lists journaled cycles.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Config configures the dashboard.
type Config struct {
	Addr string

	// StaticDir, if set, is served at /.
	StaticDir string

	Controller Controller
	History    History
	Logger     *slog.Logger
}

// DefaultConfig returns dashboard defaults.
func DefaultConfig() Config {
	return Config{Addr: ":8080"}
}

// Server is the dashboard server.
type Server struct {
	app       *fiber.App
	cfg       Config
	statusHub *hub.Hub
	logger    *slog.Logger
}

// NewServer creates the dashboard.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		statusHub: hub.New("status", logger),
		logger:    logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Voice Supervisor",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           10 * time.Second,
	})
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/commands", s.handleCommands)
	api.Get("/history", s.handleHistory)
	api.Post("/override/:code", s.handleOverride)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app

	cfg.Controller.Observe(func(snap supervisor.Snapshot) {
		if err := s.statusHub.BroadcastJSON(snap); err != nil {
			s.logger.Warn("failed to encode status", "error", err)
		}
	})
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", s.cfg.Addr)
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("dashboard: %w", err)
	case <-ctx.Done():
	}
	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	return nil
}
