package web

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yongli3/voice-system/pkg/asr"
	"github.com/yongli3/voice-system/pkg/commands"
	"github.com/yongli3/voice-system/pkg/dispatch"
	"github.com/yongli3/voice-system/pkg/effect"
	"github.com/yongli3/voice-system/pkg/journal"
	"github.com/yongli3/voice-system/pkg/supervisor"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(_ context.Context, effects []effect.Effect) dispatch.Report {
	return dispatch.Report{Executed: len(effects)}
}

func table() *commands.Table {
	return commands.New(
		commands.Entry{Phrase: "开始定位", Code: 1},
		commands.Entry{Phrase: "张开手", Code: 7},
	)
}

func newServer(t *testing.T, mode supervisor.Mode, hist History) (*Server, *supervisor.Supervisor) {
	t.Helper()
	cfg := supervisor.Config{Mode: mode, Table: table(), Dispatcher: nopDispatcher{}}
	if mode == supervisor.ModeVoice {
		cfg.Engine = asr.NewMock()
	}
	sup, err := supervisor.New(cfg)
	require.NoError(t, err)

	srv, err := NewServer(Config{Controller: sup, History: hist})
	require.NoError(t, err)
	return srv, sup
}

func body(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func TestStatus(t *testing.T) {
	srv, sup := newServer(t, supervisor.ModeManual, nil)
	sup.OnAuth(true)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	got := body(t, resp.Body)
	assert.Equal(t, "manual", got["mode"])
	assert.Equal(t, "idle", got["task"])
	assert.Equal(t, "unlocked", got["lock"])
}

func TestCommands(t *testing.T) {
	srv, _ := newServer(t, supervisor.ModeManual, nil)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/commands", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var entries []commands.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Equal(t, table().Entries(), entries)
}

func TestOverride(t *testing.T) {
	srv, sup := newServer(t, supervisor.ModeManual, nil)

	resp, err := srv.App().Test(httptest.NewRequest("POST", "/api/override/7", nil))
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)

	snap := sup.Snapshot()
	require.NotNil(t, snap.Override)
	assert.Equal(t, 7, *snap.Override)
}

func TestOverride_Errors(t *testing.T) {
	srv, _ := newServer(t, supervisor.ModeManual, nil)

	for path, status := range map[string]int{
		"/api/override/abc": 400,
		"/api/override/-1":  400,
		"/api/override/42":  404,
	} {
		resp, err := srv.App().Test(httptest.NewRequest("POST", path, nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, path)
	}
}

func TestOverride_VoiceModeConflict(t *testing.T) {
	srv, _ := newServer(t, supervisor.ModeVoice, nil)

	resp, err := srv.App().Test(httptest.NewRequest("POST", "/api/override/1", nil))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	j, err := journal.Open(journal.MemoryPath)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.Record(context.Background(), journal.Entry{
		ID: "c1", Kind: "command", Code: 1, Outcome: journal.OutcomeApplied,
	}))

	srv, _ := newServer(t, supervisor.ModeManual, j)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/history?limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var entries []journal.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].ID)

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/api/history?limit=0", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHistory_NotConfigured(t *testing.T) {
	srv, _ := newServer(t, supervisor.ModeManual, nil)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/history", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestStatusWS_RequiresUpgrade(t *testing.T) {
	srv, _ := newServer(t, supervisor.ModeManual, nil)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/ws/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestNewServer_RequiresController(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}
