package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// WebsocketConfig configures a WebsocketEngine.
type WebsocketConfig struct {
	// URL of the recognition gateway, ws:// or wss://.
	URL string

	// AppID identifies this client to the gateway.
	AppID  string
	APIKey string

	// Language and SampleRate are passed to the gateway on start.
	Language   string
	SampleRate int

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// DefaultWebsocketConfig returns defaults for a local gateway.
func DefaultWebsocketConfig() WebsocketConfig {
	return WebsocketConfig{
		URL:              "ws://localhost:8765/asr",
		Language:         "zh_cn",
		SampleRate:       16000,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *WebsocketConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("asr gateway URL is required")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	return nil
}

// Gateway event types.
const (
	eventLogin  = "login"
	eventStart  = "start"
	eventStop   = "stop"
	eventBegin  = "begin"
	eventResult = "result"
	eventEnd    = "end"
)

// event is one JSON frame exchanged with the gateway.
type event struct {
	Type string `json:"type"`

	// login
	AppID string `json:"app_id,omitempty"`

	// start
	Language   string `json:"language,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`

	// result
	Text string `json:"text,omitempty"`
	Last bool   `json:"last,omitempty"`

	// end
	Reason int `json:"reason,omitempty"`
}

// WebsocketEngine talks to a recognition gateway that owns the microphone
// and streams recognition events back as JSON frames.
type WebsocketEngine struct {
	cfg    WebsocketConfig
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	reading chan struct{}
}

// NewWebsocketEngine creates an engine. Login dials the gateway.
func NewWebsocketEngine(cfg WebsocketConfig, logger *slog.Logger) (*WebsocketEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebsocketEngine{
		cfg:    cfg,
		logger: logger.With("component", "asr.websocket"),
	}, nil
}

// Login implements Engine.
func (e *WebsocketEngine) Login(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		return nil
	}

	header := http.Header{}
	if e.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
	dialer := websocket.Dialer{HandshakeTimeout: e.cfg.HandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, e.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("failed to connect to asr gateway: %w", err)
	}
	e.conn = conn

	if err := e.send(conn, event{Type: eventLogin, AppID: e.cfg.AppID}); err != nil {
		_ = conn.Close()
		e.conn = nil
		return err
	}
	e.logger.Debug("asr gateway connected", "url", e.cfg.URL)
	return nil
}

// Start implements Engine.
func (e *WebsocketEngine) Start(_ context.Context, n Notifier) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return errors.New("asr: not logged in")
	}
	if e.reading != nil {
		return errors.New("asr: session already running")
	}

	if err := e.send(e.conn, event{Type: eventStart, Language: e.cfg.Language, SampleRate: e.cfg.SampleRate}); err != nil {
		return err
	}

	e.reading = make(chan struct{})
	go e.readLoop(e.conn, n, e.reading)
	return nil
}

// readLoop forwards gateway events to n until the session ends or the
// connection fails.
func (e *WebsocketEngine) readLoop(conn *websocket.Conn, n Notifier, done chan struct{}) {
	defer close(done)
	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			e.logger.Debug("asr read ended", "error", err)
			n.OnEnd(EndDisconnected)
			return
		}
		switch ev.Type {
		case eventBegin:
			n.OnBegin()
		case eventResult:
			n.OnResult(ev.Text, ev.Last)
		case eventEnd:
			n.OnEnd(ev.Reason)
			return
		default:
			e.logger.Warn("unknown asr event", "type", ev.Type)
		}
	}
}

// Stop implements Engine.
func (e *WebsocketEngine) Stop() error {
	e.mu.Lock()
	conn, reading := e.conn, e.reading
	e.reading = nil
	e.mu.Unlock()

	if conn == nil || reading == nil {
		return nil
	}

	select {
	case <-reading:
		return nil
	default:
	}

	// The session is still open: ask the gateway to end it and drop the
	// connection so the reader unblocks.
	err := e.send(conn, event{Type: eventStop})
	_ = conn.Close()
	<-reading

	e.mu.Lock()
	if e.conn == conn {
		e.conn = nil
	}
	e.mu.Unlock()
	return err
}

// Logout implements Engine.
func (e *WebsocketEngine) Logout() error {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.mu.Unlock()

	if conn == nil {
		return nil
	}

	e.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(e.cfg.WriteTimeout))
	e.writeMu.Unlock()
	return conn.Close()
}

func (e *WebsocketEngine) send(conn *websocket.Conn, ev event) error {
	data, err := codec.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(e.cfg.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s event: %w", ev.Type, err)
	}
	return nil
}
