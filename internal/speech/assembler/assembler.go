// Package assembler joins fragment audio into one cached artifact.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"parrot/internal/speech/cache"
)

// ErrAssembly is returned when fragments could not be joined.
var ErrAssembly = errors.New("assembly failed")

// Assembler concatenates fragment files into the cache, keyed by the
// whole-text fingerprint.
type Assembler struct {
	store  *cache.Store
	concat Concatenator
	log    logrus.FieldLogger
}

func New(store *cache.Store, concat Concatenator, log logrus.FieldLogger) *Assembler {
	return &Assembler{store: store, concat: concat, log: log}
}

// Lookup returns the artifact path for key and whether it already exists.
func (a *Assembler) Lookup(key cache.Key) (string, bool, error) {
	ok, err := a.store.Exists(key)
	return a.store.Path(key), ok, err
}

// Assemble writes fragments, in the given order, to the artifact for key and
// returns its path. An existing artifact is returned as is unless bypass is
// set. The artifact only appears once it is complete.
func (a *Assembler) Assemble(ctx context.Context, fragments []string, key cache.Key, bypass bool) (string, error) {
	dest, hit, err := a.Lookup(key)
	if err != nil {
		return "", err
	}

	log := a.log.WithFields(logrus.Fields{
		"key":       key.Short(),
		"path":      dest,
		"fragments": len(fragments),
	})

	if hit && !bypass {
		log.Debug("Get from cache")
		return dest, nil
	}

	if len(fragments) == 0 {
		return "", fmt.Errorf("%w: no fragments to join", ErrAssembly)
	}

	partial := cache.PartialPath(dest)
	if err := a.concat.Concat(ctx, fragments, partial); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("%w: %w", ErrAssembly, err)
	}

	info, err := os.Stat(partial)
	if err != nil || info.Size() == 0 {
		os.Remove(partial)
		return "", fmt.Errorf("%w: concatenation produced no output", ErrAssembly)
	}

	if err := cache.Commit(partial, dest); err != nil {
		return "", err
	}

	log.WithField("bytes", info.Size()).Debug("Built final file")
	return dest, nil
}
