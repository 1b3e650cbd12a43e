package playback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yongli3/voice-system/pkg/tts"
)

// Speaker synthesizes text and plays it.
type Speaker struct {
	provider tts.Provider
	sink     Sink
	logger   *slog.Logger
}

// NewSpeaker creates a speaker.
func NewSpeaker(provider tts.Provider, sink Sink, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "playback.speaker"),
	}
}

// Say speaks text and blocks until playback finishes.
func (s *Speaker) Say(ctx context.Context, text string) error {
	result, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	s.logger.Debug("speaking", "text", text, "duration", result.Duration)
	if err := s.sink.Play(ctx, result.Audio, result.Format); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}
