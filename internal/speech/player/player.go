// Package player hands finished audio to something that can play it.
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned for an empty player command line.
var ErrNoCommand = errors.New("empty player command")

// Player plays an audio file and returns when playback ends.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Command plays files with an external program, e.g. "mpg123 -q". The file
// path is appended as the last argument.
type Command struct {
	Args []string
}

// NewCommand splits a command line into a Command.
func NewCommand(line string) (*Command, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	return &Command{Args: args}, nil
}

func (c *Command) Play(ctx context.Context, path string) error {
	if len(c.Args) == 0 {
		return ErrNoCommand
	}

	args := append(append([]string{}, c.Args[1:]...), path)
	cmd := exec.CommandContext(ctx, c.Args[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w, stderr: %s", c.Args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
