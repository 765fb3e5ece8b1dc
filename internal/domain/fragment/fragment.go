package fragment

import "unicode/utf8"

// Fragment is one engine-sized piece of the input text.
type Fragment struct {
	Index int    `json:"index"` // 1-based position in the final audio
	Text  string `json:"text"`
}

// Len returns the fragment length in runes.
func (f Fragment) Len() int {
	return utf8.RuneCountInString(f.Text)
}

// Texts returns the fragment texts in order.
func Texts(fragments []Fragment) []string {
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		texts = append(texts, f.Text)
	}
	return texts
}
