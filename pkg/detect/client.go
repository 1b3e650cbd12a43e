package detect

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yongli3/voice-system/internal/httpc"
)

// Result is a detection answer. Coordinates are in the arm's frame.
type Result struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Found bool    `json:"result"`
}

// Detector finds an object by service name.
type Detector interface {
	Detect(ctx context.Context, name string) (Result, error)
}

// Config configures the detection client.
type Config struct {
	// URL is the detection endpoint.
	URL     string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns defaults for a local service.
func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:8090/detect",
		Timeout: 10 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("detection URL is required")
	}
	return nil
}

// Client calls the detection service over HTTP.
type Client struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a detection client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    cfg.URL,
		client: httpc.NewClient(cfg.Timeout),
		logger: logger.With("component", "detect"),
	}, nil
}

type detectRequest struct {
	Target string `json:"target"`
}

// Detect asks the service to look for name.
func (c *Client) Detect(ctx context.Context, name string) (Result, error) {
	var res Result
	start := time.Now()
	if err := httpc.PostJSON(ctx, c.client, c.url, nil, detectRequest{Target: name}, &res); err != nil {
		return Result{}, fmt.Errorf("detect %s: %w", name, err)
	}
	c.logger.Debug("detection finished",
		"target", name,
		"found", res.Found,
		"x", res.X, "y", res.Y, "z", res.Z,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Verify Client implements Detector at compile time.
var _ Detector = (*Client)(nil)
