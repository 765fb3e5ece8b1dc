// Package narrator runs text through segmentation, synthesis and assembly.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"parrot/internal/config"
	"parrot/internal/domain/fragment"
	"parrot/internal/speech/assembler"
	"parrot/internal/speech/cache"
	"parrot/internal/speech/tts"
)

// Options control one run.
type Options struct {
	MaxLen        int
	Strict        bool
	BypassCache   bool
	Workers       int
	KeepFragments bool
}

// Narrator turns text into one cached audio file.
type Narrator struct {
	engine    tts.Engine
	engineCfg tts.Config
	assembler *assembler.Assembler
	opts      Options
	log       logrus.FieldLogger
}

func New(engine tts.Engine, engineCfg tts.Config, asm *assembler.Assembler, opts Options, log logrus.FieldLogger) *Narrator {
	if opts.MaxLen < 1 {
		opts.MaxLen = fragment.DefaultMaxLen
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Narrator{
		engine:    engine,
		engineCfg: engineCfg,
		assembler: asm,
		opts:      opts,
		log:       log,
	}
}

// Key is the cache key of the assembled audio for text.
func (n *Narrator) Key(text string) cache.Key {
	return cache.Fingerprint(n.engineCfg.Kind.String(), n.engineCfg.Language, n.engineCfg.Voice, text)
}

// Segment splits text the way Run does.
func (n *Narrator) Segment(text string) ([]fragment.Fragment, error) {
	var (
		fragments []fragment.Fragment
		err       error
	)
	if n.opts.Strict {
		fragments, err = fragment.SegmentStrict(text, n.opts.MaxLen)
	} else {
		fragments = fragment.Segment(text, n.opts.MaxLen)
	}
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, ErrNothingToSay
	}
	return fragments, nil
}

// Run returns the path of the audio for text. A cached artifact is returned
// without any network call unless the cache is bypassed. Any fragment
// failure aborts the run before assembly.
func (n *Narrator) Run(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", stageErr(StageValidate, 0, fmt.Errorf("%w: text must not be empty", config.ErrConfig))
	}

	key := n.Key(text)
	log := n.log.WithFields(logrus.Fields{
		"run_id":   uuid.NewString(),
		"engine":   n.engineCfg.Kind.String(),
		"language": n.engineCfg.Language,
		"key":      key.Short(),
	})

	if !n.opts.BypassCache {
		path, hit, err := n.assembler.Lookup(key)
		if err != nil {
			return "", stageErr(StageCache, 0, err)
		}
		if hit {
			log.WithField("path", path).Debug("Get from cache")
			return path, nil
		}
	}

	fragments, err := n.Segment(text)
	if err != nil {
		return "", stageErr(StageSegment, 0, err)
	}
	log.WithField("fragments", len(fragments)).Debug("Text segmented")

	paths, fetched, err := n.fetch(ctx, fragments, log)
	if !n.opts.KeepFragments {
		defer removeAll(fetched, log)
	}
	if err != nil {
		return "", err
	}

	out, err := n.assembler.Assemble(ctx, paths, key, n.opts.BypassCache)
	if err != nil {
		if errors.Is(err, cache.ErrCacheIO) {
			return "", stageErr(StageCache, 0, err)
		}
		return "", stageErr(StageAssemble, 0, err)
	}

	log.WithField("path", out).Info("Audio assembled")
	return out, nil
}

// fetch synthesizes every distinct fragment text once, at most
// Options.Workers at a time. paths follows fragment order; fetched lists
// every file written, also on failure, so the caller can clean up.
func (n *Narrator) fetch(ctx context.Context, fragments []fragment.Fragment, log logrus.FieldLogger) (paths, fetched []string, err error) {
	var (
		unique []fragment.Fragment
		slot   = make([]int, len(fragments))
		seen   = make(map[string]int)
	)
	for i, f := range fragments {
		j, ok := seen[f.Text]
		if !ok {
			j = len(unique)
			seen[f.Text] = j
			unique = append(unique, f)
		}
		slot[i] = j
	}

	results := make([]string, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.opts.Workers)

	for j, f := range unique {
		g.Go(func() error {
			path, err := n.engine.Synthesize(gctx, f)
			if err != nil {
				return stageErr(StageFetch, f.Index, err)
			}
			results[j] = path
			log.WithField("fragment", f.Index).Debugf("Fetched %d/%d", f.Index, len(fragments))
			return nil
		})
	}
	err = g.Wait()

	for _, p := range results {
		if p != "" {
			fetched = append(fetched, p)
		}
	}
	if err != nil {
		return nil, fetched, err
	}

	paths = make([]string, len(fragments))
	for i := range fragments {
		paths[i] = results[slot[i]]
	}
	return paths, fetched, nil
}

func removeAll(paths []string, log logrus.FieldLogger) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("path", p).Warn("Failed to remove fragment file")
		}
	}
}
