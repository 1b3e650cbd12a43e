package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidClip is returned for clip ids that would escape the clip directory.
var ErrInvalidClip = errors.New("playback: invalid clip id")

// Runner runs an external command to completion.
type Runner func(ctx context.Context, name string, args ...string) error

// ClipPlayer plays canned WAV clips named <id>.wav from a directory.
type ClipPlayer struct {
	dir     string
	command string
	timeout time.Duration
	run     Runner
}

// ClipOption configures a ClipPlayer.
type ClipOption func(*ClipPlayer)

// WithCommand sets the external player binary. Default "play" (sox).
func WithCommand(name string) ClipOption {
	return func(p *ClipPlayer) {
		p.command = name
	}
}

// WithClipTimeout bounds a single clip.
func WithClipTimeout(d time.Duration) ClipOption {
	return func(p *ClipPlayer) {
		p.timeout = d
	}
}

// WithRunner replaces command execution.
func WithRunner(r Runner) ClipOption {
	return func(p *ClipPlayer) {
		p.run = r
	}
}

// NewClipPlayer creates a player for clips in dir.
func NewClipPlayer(dir string, opts ...ClipOption) *ClipPlayer {
	p := &ClipPlayer{
		dir:     dir,
		command: "play",
		timeout: 10 * time.Second,
		run:     runCommand,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Path returns the file for clip.
func (p *ClipPlayer) Path(clip string) (string, error) {
	if clip == "" || strings.ContainsAny(clip, `/\`) || clip == "." || clip == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidClip, clip)
	}
	return filepath.Join(p.dir, clip+".wav"), nil
}

// Play plays clip and blocks until the player exits.
func (p *ClipPlayer) Play(ctx context.Context, clip string) error {
	path, err := p.Path(clip)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("clip %s: %w", clip, err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.run(ctx, p.command, "-q", path); err != nil {
		return fmt.Errorf("play clip %s: %w", clip, err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
