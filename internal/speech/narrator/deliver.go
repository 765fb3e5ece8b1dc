package narrator

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Player plays an audio file and returns when playback ends.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Deliver copies artifact to outFile, or plays it when outFile is empty.
func Deliver(ctx context.Context, artifact, outFile string, player Player, log logrus.FieldLogger) error {
	if outFile == "" {
		log.WithField("path", artifact).Debug("Play audio")
		if err := player.Play(ctx, artifact); err != nil {
			return stageErr(StageDeliver, 0, fmt.Errorf("play %s: %w", artifact, err))
		}
		return nil
	}

	log.WithField("out_file", outFile).Debug("Write audio file")
	if err := copyFile(artifact, outFile); err != nil {
		return stageErr(StageDeliver, 0, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
