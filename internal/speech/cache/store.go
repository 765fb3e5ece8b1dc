package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultExt is the extension of every audio artifact.
	DefaultExt = ".mp3"

	dirPermissions = 0o755
)

// ErrCacheIO wraps any filesystem failure on cache or fragment files.
var ErrCacheIO = errors.New("cache i/o failed")

// Store keeps assembled artifacts in a directory, one file per Key.
type Store struct {
	dir string
	ext string
	log logrus.FieldLogger
}

// Stats describes the artifacts currently in a Store.
type Stats struct {
	Directory string
	Files     int64
	SizeBytes int64
}

// SizeMB returns the total size in mebibytes.
func (s Stats) SizeMB() float64 {
	return float64(s.SizeBytes) / (1024 * 1024)
}

// Open returns a Store rooted at dir, creating the directory if missing.
func Open(dir, ext string, log logrus.FieldLogger) (*Store, error) {
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("%w: create cache dir %s: %w", ErrCacheIO, dir, err)
	}

	return &Store{dir: dir, ext: ext, log: log}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Ext returns the artifact extension including the dot.
func (s *Store) Ext() string {
	return s.ext
}

// Path returns where the artifact for k lives, whether or not it exists.
func (s *Store) Path(k Key) string {
	return filepath.Join(s.dir, k.String()+s.ext)
}

// Exists reports whether a complete artifact for k is present.
func (s *Store) Exists(k Key) (bool, error) {
	info, err := os.Stat(s.Path(k))
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat %s: %w", ErrCacheIO, s.Path(k), err)
	}
}

// Stats walks the cache directory and counts artifacts.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{Directory: s.dir}

	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // keep walking past unreadable entries
		}
		if d.IsDir() || !s.isArtifact(d.Name()) || isPartial(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		stats.Files++
		stats.SizeBytes += info.Size()
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("%w: walk %s: %w", ErrCacheIO, s.dir, err)
	}

	return stats, nil
}

// Clear removes every artifact, including abandoned partial writes, and
// returns how many files were deleted. Other files are left alone.
func (s *Store) Clear() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read %s: %w", ErrCacheIO, s.dir, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !s.isArtifact(e.Name()) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("%w: remove %s: %w", ErrCacheIO, path, err)
		}
		removed++
	}

	s.log.WithFields(logrus.Fields{
		"dir":     s.dir,
		"removed": removed,
	}).Info("Cleared audio cache")

	return removed, nil
}

func (s *Store) isArtifact(name string) bool {
	return strings.EqualFold(filepath.Ext(name), s.ext)
}

func isPartial(name string) bool {
	return strings.Contains(name, ".partial.")
}

// PartialPath returns a unique sibling of final to write into before
// Commit. It keeps final's extension so external tools can infer the format.
func PartialPath(final string) string {
	ext := filepath.Ext(final)
	base := strings.TrimSuffix(final, ext)
	return fmt.Sprintf("%s.%s.partial%s", base, uuid.NewString(), ext)
}

// Commit atomically moves a finished partial file into place.
func Commit(partial, final string) error {
	if err := os.Rename(partial, final); err != nil {
		os.Remove(partial)
		return fmt.Errorf("%w: publish %s: %w", ErrCacheIO, final, err)
	}
	return nil
}
