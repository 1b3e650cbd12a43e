// Package playback plays speech on the robot's speaker.
//
// Synthesized speech is raw PCM16 written to PulseAudio. Canned clips are
// WAV files played through an external player, the way the robot's
// recorded prompts have always been played.
package playback

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/jfreymuth/pulse"

	"github.com/yongli3/voice-system/pkg/tts"
)

// Sink plays PCM16 audio.
type Sink interface {
	Play(ctx context.Context, pcm []byte, format tts.AudioFormat) error
}

// PulseSink plays audio through the PulseAudio (or PipeWire-pulse) server.
type PulseSink struct {
	// AppName is reported to the server as the client name.
	AppName string
}

// NewPulseSink creates a PulseAudio sink.
func NewPulseSink(appName string) *PulseSink {
	if appName == "" {
		appName = "voice-supervisor"
	}
	return &PulseSink{AppName: appName}
}

// Play blocks until the audio has drained or ctx is done.
func (s *PulseSink) Play(ctx context.Context, pcm []byte, format tts.AudioFormat) error {
	if len(pcm) == 0 {
		return nil
	}
	if format.BitDepth != 16 {
		return fmt.Errorf("unsupported bit depth %d", format.BitDepth)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName(s.AppName))
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	samples := decodePCM16(pcm)
	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(format.SampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName("supervisor speech"),
	}
	if format.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}

	stream, err := client.NewPlayback(reader, opts...)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	drained := make(chan struct{})
	stream.Start()
	go func() {
		stream.Drain()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		// Closing the client in the deferred calls releases Drain.
		stream.Stop()
		return ctx.Err()
	}

	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return nil
}

// decodePCM16 converts little-endian bytes to samples. A trailing odd
// byte is dropped.
func decodePCM16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return samples
}
