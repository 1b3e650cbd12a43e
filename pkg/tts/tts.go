// Package tts synthesizes the robot's spoken prompts.
//
// Providers return raw PCM16 mono audio so it can be written straight to
// the speaker without decoding. OpenAI is the production provider; Mock
// records calls for tests.
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceNova),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "执行命令 开始定位")
//	// result.Audio is PCM16 at result.Format.SampleRate
package tts

import (
	"context"
	"time"
)

// Provider synthesizes speech.
type Provider interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	// Audio is raw little-endian PCM16 samples.
	Audio []byte

	Format AudioFormat

	// Duration is the playback duration derived from the sample count.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64
}

// AudioFormat describes PCM audio.
type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// PCM24 is 24kHz mono PCM16, the format every provider here returns.
var PCM24 = AudioFormat{SampleRate: 24000, Channels: 1, BitDepth: 16}

// BytesPerSecond returns the data rate of the format.
func (f AudioFormat) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// DurationOf returns how long n bytes of audio play for.
func (f AudioFormat) DurationOf(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}
