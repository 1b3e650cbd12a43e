package asr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds one listening session.
const DefaultTimeout = 15 * time.Second

// collector accumulates fragments for one session.
type collector struct {
	mu     sync.Mutex
	buf    strings.Builder
	last   bool
	reason int
	ended  bool
	done   chan struct{}
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

// OnBegin discards anything heard before the utterance started.
func (c *collector) OnBegin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.buf.Reset()
	c.last = false
}

func (c *collector) OnResult(text string, last bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.buf.WriteString(text)
	if last {
		c.last = true
	}
}

func (c *collector) OnEnd(reason int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.ended = true
	c.reason = reason
	close(c.done)
}

func (c *collector) result() (text string, last bool, reason int, ended bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String(), c.last, c.reason, c.ended
}

// Listen runs one listening session and returns the finished transcript.
//
// The engine is logged in and started, fragments are accumulated until
// the engine ends the session or timeout passes, and the engine is stopped
// and logged out on every path. ctx bounds Login and Start only; once
// listening, the session runs until it ends or times out.
//
// Only a transcript whose final fragment arrived is returned. A session
// that ends without one yields "" like silence; a timeout after the final
// fragment still yields the transcript.
func Listen(ctx context.Context, eng Engine, timeout time.Duration, logger *slog.Logger) (text string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if err := eng.Login(ctx); err != nil {
		return "", &SessionError{Op: "login", Err: err}
	}
	defer func() {
		if lerr := eng.Logout(); lerr != nil {
			logger.Warn("asr logout failed", "error", lerr)
		}
	}()

	c := newCollector()
	if err := eng.Start(ctx, c); err != nil {
		return "", &SessionError{Op: "start", Err: err}
	}
	defer func() {
		if serr := eng.Stop(); serr != nil {
			logger.Warn("asr stop failed", "error", serr)
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
	case <-timer.C:
	}

	text, last, reason, ended := c.result()
	switch {
	case ended && reason != EndNormal:
		return "", &SessionError{Op: "end", Reason: reason, Err: ErrAbnormalEnd}
	case !ended && !last:
		return "", &SessionError{Op: "wait", Err: ErrTimeout}
	case !last:
		if text != "" {
			logger.Debug("asr session ended without final result", "partial", text)
		}
		return "", nil
	}

	logger.Debug("asr session finished", "text", text, "timed_out", !ended)
	return text, nil
}

// IsTimeout reports whether err is a session timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
