package fragment

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{
			name:   "punctuation split",
			text:   "Hello, world. This is a test",
			maxLen: 100,
			want:   []string{"Hello", "world", "This is a test"},
		},
		{
			name:   "all delimiters",
			text:   "one;two:three,four.five",
			maxLen: 100,
			want:   []string{"one", "two", "three", "four", "five"},
		},
		{
			name:   "empty parts dropped",
			text:   "..., ; :  . a .",
			maxLen: 100,
			want:   []string{"a"},
		},
		{
			name:   "remainder processed before later parts",
			text:   "aaaa bbbb cccc, dd",
			maxLen: 9,
			want:   []string{"aaaa", "bbbb cccc", "dd"},
		},
		{
			name:   "remainder cut repeatedly",
			text:   "the quick brown fox jumps over the lazy dog",
			maxLen: 10,
			want:   []string{"the quick", "brown fox", "jumps", "over the", "lazy dog"},
		},
		{
			name:   "part exactly at limit",
			text:   "abcde, fghij",
			maxLen: 5,
			want:   []string{"abcde", "fghij"},
		},
		{
			name:   "surrounding whitespace ignored for length",
			text:   "   abcde   ",
			maxLen: 5,
			want:   []string{"abcde"},
		},
		{
			name:   "no whitespace is hard cut",
			text:   strings.Repeat("a", 150),
			maxLen: 100,
			want:   []string{strings.Repeat("a", 100), strings.Repeat("a", 50)},
		},
		{
			name:   "runes not bytes",
			text:   "héllo wörld ünïcode",
			maxLen: 12,
			want:   []string{"héllo wörld", "ünïcode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.text, tt.maxLen)
			assert.Equal(t, tt.want, Texts(got))
			for i, f := range got {
				assert.Equal(t, i+1, f.Index)
			}
		})
	}
}

func TestSegmentStrict(t *testing.T) {
	_, err := SegmentStrict(strings.Repeat("a", 150), 100)
	require.ErrorIs(t, err, ErrDegenerateInput)

	got, err := SegmentStrict("Hello, world. This is a test", 100)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSegmentZeroMaxLenUsesDefault(t *testing.T) {
	got := Segment(strings.Repeat("word ", 30), 0)
	require.NotEmpty(t, got)
	for _, f := range got {
		assert.LessOrEqual(t, f.Len(), DefaultMaxLen)
	}
}

func TestSegmentProperties(t *testing.T) {
	corpus := []string{
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit; sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam: quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat",
		"A single sentence without any punctuation but long enough that it has to be cut into several pieces by whitespace alone when the limit is small",
		"short",
		"tabs\tand\nnewlines count as whitespace too, right",
	}

	for _, text := range corpus {
		for _, maxLen := range []int{8, 15, 40, 100} {
			got := Segment(text, maxLen)
			for _, f := range got {
				assert.LessOrEqual(t, f.Len(), maxLen)
				assert.NotEmpty(t, f.Text)
				assert.Equal(t, strings.TrimSpace(f.Text), f.Text)
			}
			assert.Equal(t, squash(text), squash(strings.Join(Texts(got), " ")),
				"content and order must survive segmentation (maxLen=%d)", maxLen)
		}
	}
}

// squash drops delimiters and whitespace.
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if isDelimiter(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
