package fragment

import (
	"container/list"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultMaxLen is the longest fragment the remote engines accept.
const DefaultMaxLen = 100

// ErrDegenerateInput is returned in strict mode when a part is longer than
// the limit and has no whitespace to cut on.
var ErrDegenerateInput = errors.New("part has no whitespace within the fragment limit")

func isDelimiter(r rune) bool {
	switch r {
	case '.', ',', ';', ':':
		return true
	}
	return false
}

// Segment splits text into trimmed, non-empty fragments of at most maxLen
// runes. Text is first split on . , ; : and every part longer than maxLen is
// cut at its last whitespace before maxLen. The remainder of a cut part is
// processed next, so fragments keep the order of the original text.
// A part without such whitespace is hard-cut at maxLen.
func Segment(text string, maxLen int) []Fragment {
	fragments, _ := segment(text, maxLen, false)
	return fragments
}

// SegmentStrict is Segment, but fails with ErrDegenerateInput instead of
// hard-cutting a part that has no whitespace within maxLen.
func SegmentStrict(text string, maxLen int) ([]Fragment, error) {
	return segment(text, maxLen, true)
}

func segment(text string, maxLen int, strict bool) ([]Fragment, error) {
	if maxLen < 1 {
		maxLen = DefaultMaxLen
	}

	queue := list.New()
	for _, part := range strings.FieldsFunc(text, isDelimiter) {
		queue.PushBack(part)
	}

	var fragments []Fragment
	for queue.Len() > 0 {
		part := strings.TrimSpace(queue.Remove(queue.Front()).(string))
		if part == "" {
			continue
		}

		runes := []rune(part)
		if len(runes) > maxLen {
			cutAt := lastSpace(runes[:maxLen])
			if cutAt <= 0 {
				if strict {
					return nil, fmt.Errorf("%w: %q exceeds %d runes", ErrDegenerateInput, preview(runes), maxLen)
				}
				cutAt = maxLen
			}
			queue.PushFront(string(runes[cutAt:]))
			part = strings.TrimSpace(string(runes[:cutAt]))
			if part == "" {
				continue
			}
		}

		fragments = append(fragments, Fragment{
			Index: len(fragments) + 1,
			Text:  part,
		})
	}

	return fragments, nil
}

// lastSpace returns the index of the last whitespace rune, or -1.
func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func preview(runes []rune) string {
	const n = 24
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
