package asr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateway is a scripted recognition gateway. After the client's start
// event it writes events, then waits for the client to hang up.
type gateway struct {
	t      *testing.T
	events []event
	got    chan event
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		g.got <- ev
		if ev.Type != eventStart {
			continue
		}
		for _, out := range g.events {
			if err := conn.WriteJSON(out); err != nil {
				return
			}
		}
	}
}

func newGateway(t *testing.T, events ...event) (*gateway, string) {
	t.Helper()
	g := &gateway{t: t, events: events, got: make(chan event, 16)}
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return g, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestEngine(t *testing.T, url string) *WebsocketEngine {
	t.Helper()
	cfg := DefaultWebsocketConfig()
	cfg.URL = url
	cfg.AppID = "test-app"
	eng, err := NewWebsocketEngine(cfg, quietLogger())
	require.NoError(t, err)
	return eng
}

func TestWebsocketEngine_Session(t *testing.T) {
	g, url := newGateway(t,
		event{Type: eventBegin},
		event{Type: eventResult, Text: "机器人"},
		event{Type: eventResult, Text: "向左转", Last: true},
		event{Type: eventEnd},
	)
	eng := newTestEngine(t, url)

	text, err := Listen(context.Background(), eng, 2*time.Second, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "机器人向左转", text)

	login := <-g.got
	assert.Equal(t, eventLogin, login.Type)
	assert.Equal(t, "test-app", login.AppID)

	start := <-g.got
	assert.Equal(t, eventStart, start.Type)
	assert.Equal(t, 16000, start.SampleRate)
	assert.Equal(t, "zh_cn", start.Language)
}

func TestWebsocketEngine_AbnormalEnd(t *testing.T) {
	_, url := newGateway(t,
		event{Type: eventBegin},
		event{Type: eventEnd, Reason: 3},
	)
	eng := newTestEngine(t, url)

	_, err := Listen(context.Background(), eng, 2*time.Second, quietLogger())
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 3, serr.Reason)
}

func TestWebsocketEngine_TimeoutSendsStop(t *testing.T) {
	g, url := newGateway(t, event{Type: eventBegin})
	eng := newTestEngine(t, url)

	_, err := Listen(context.Background(), eng, 50*time.Millisecond, quietLogger())
	assert.True(t, IsTimeout(err))

	var types []string
	for len(types) < 3 {
		select {
		case ev := <-g.got:
			types = append(types, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("gateway saw %v", types)
		}
	}
	assert.Equal(t, []string{eventLogin, eventStart, eventStop}, types)
}

func TestWebsocketEngine_DialFailure(t *testing.T) {
	eng := newTestEngine(t, "ws://127.0.0.1:1/asr")

	_, err := Listen(context.Background(), eng, time.Second, quietLogger())
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "login", serr.Op)
}

func TestWebsocketEngine_StartWithoutLogin(t *testing.T) {
	eng := newTestEngine(t, "ws://unused")
	assert.Error(t, eng.Start(context.Background(), newCollector()))
	assert.NoError(t, eng.Stop())
	assert.NoError(t, eng.Logout())
}

func TestWebsocketConfig_Validate(t *testing.T) {
	cfg := DefaultWebsocketConfig()
	require.NoError(t, cfg.Validate())

	cfg.URL = ""
	assert.Error(t, cfg.Validate())
}
