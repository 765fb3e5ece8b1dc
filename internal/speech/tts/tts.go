// Package tts turns single text fragments into audio files using remote
// synthesis engines.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parrot/internal/domain/fragment"
	"parrot/internal/speech/cache"
)

// DefaultTimeout bounds a single fragment request.
const DefaultTimeout = 30 * time.Second

var (
	// ErrUnknownEngine is returned for an EngineKind outside the supported set.
	ErrUnknownEngine = errors.New("unknown tts engine")
	// ErrFetch is returned when a fragment could not be synthesized.
	ErrFetch = errors.New("tts fetch failed")
)

// Config is the immutable per-run engine configuration.
type Config struct {
	Kind     EngineKind
	Language string
	Voice    string // empty means no voice was requested

	// TempDir receives fragment audio files.
	TempDir string
	Timeout time.Duration

	// BaseURL overrides the engine endpoint; empty uses the public one.
	BaseURL string
	// CloudVoice is the googlecloud voice name used when Voice is empty.
	CloudVoice string
}

// Engine synthesizes one fragment into an audio file.
type Engine interface {
	Kind() EngineKind
	// Synthesize fetches audio for f and returns the path of the written file.
	Synthesize(ctx context.Context, f fragment.Fragment) (string, error)
	Close() error
}

// FragmentKey is the cache key of one fragment's audio.
func (c Config) FragmentKey(text string) cache.Key {
	return cache.Fingerprint(c.Kind.String(), c.Language, c.Voice, text)
}

// FragmentPath is where the audio of text is written.
func (c Config) FragmentPath(text string) string {
	return filepath.Join(c.tempDir(), "tts_"+c.FragmentKey(text).String()+cache.DefaultExt)
}

func (c Config) tempDir() string {
	if c.TempDir == "" {
		return os.TempDir()
	}
	return c.TempDir
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// writeFragment stores audio for f atomically at its fragment path.
func writeFragment(c Config, f fragment.Fragment, data []byte) (string, error) {
	final := c.FragmentPath(f.Text)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", fmt.Errorf("%w: create temp dir: %w", cache.ErrCacheIO, err)
	}

	partial := cache.PartialPath(final)
	if err := os.WriteFile(partial, data, 0o644); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("%w: write fragment %d: %w", cache.ErrCacheIO, f.Index, err)
	}
	if err := cache.Commit(partial, final); err != nil {
		return "", err
	}
	return final, nil
}
