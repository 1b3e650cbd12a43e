package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yongli3/voice-system/internal/config"
	"github.com/yongli3/voice-system/pkg/tts"
)

func testApp() *app {
	return &app{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func ttsConfig(baseURL string) *config.Config {
	return &config.Config{TTS: config.TTS{
		APIKey:  "sk-test",
		BaseURL: baseURL,
		Voice:   tts.VoiceNova,
		Model:   tts.ModelMiniTTS,
		Speed:   1,
	}}
}

func TestNewSpeaker_ChecksHealthAndRegistersProvider(t *testing.T) {
	var checks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			checks.Add(1)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	a := testApp()
	sp := a.newSpeaker(ttsConfig(srv.URL))
	require.NotNil(t, sp)
	assert.Equal(t, int32(1), checks.Load())

	require.Len(t, a.closers, 1)
	_, ok := a.closers[0].(*tts.OpenAI)
	assert.True(t, ok)
	a.Close()
	assert.Empty(t, a.closers)
}

func TestNewSpeaker_UnhealthyProviderStillUsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	a := testApp()
	assert.NotNil(t, a.newSpeaker(ttsConfig(srv.URL)))
	assert.Len(t, a.closers, 1)
}

func TestNewSpeaker_NoKey(t *testing.T) {
	a := testApp()
	assert.Nil(t, a.newSpeaker(&config.Config{}))
	assert.Empty(t, a.closers)
}
