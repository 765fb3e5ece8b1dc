// Package cache names synthesized audio by content and keeps the assembled
// artifacts on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// noVoice stands in for an absent voice so that an unset voice and any
// explicit voice never share a key.
const noVoice = "none"

// Key is a content fingerprint used as a cache file name stem.
type Key string

func (k Key) String() string {
	return string(k)
}

// Short returns the first 8 characters, for log lines.
func (k Key) Short() string {
	if len(k) < 8 {
		return string(k)
	}
	return string(k[:8])
}

// Fingerprint derives the key for text synthesized by engine with the given
// language and voice. text is either one fragment or the whole input.
func Fingerprint(engine, language, voice, text string) Key {
	v := noVoice
	if voice != "" {
		v = "voice=" + voice
	}

	h := sha256.New()
	h.Write([]byte(strings.Join([]string{engine, language, v, text}, "\x00")))
	return Key(hex.EncodeToString(h.Sum(nil)))
}
