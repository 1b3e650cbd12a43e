//go:build integration

package tts_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yongli3/voice-system/pkg/tts"
)

// TestOpenAIIntegration calls the real API.
// Run with: go test -tags=integration -v ./pkg/tts/...
func TestOpenAIIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	provider, err := tts.NewOpenAI(tts.WithAPIKey(apiKey))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Health", func(t *testing.T) {
		if err := provider.Health(ctx); err != nil {
			t.Fatalf("health check failed: %v", err)
		}
	})

	t.Run("Synthesize", func(t *testing.T) {
		result, err := provider.Synthesize(ctx, "认证通过！欢迎使用ROS机器人")
		if err != nil {
			t.Fatalf("synthesize failed: %v", err)
		}
		t.Logf("synthesized %d bytes (%s), latency %dms", len(result.Audio), result.Duration, result.LatencyMs)

		if len(result.Audio) < 1000 {
			t.Error("audio too short, expected at least 1KB")
		}
	})
}
