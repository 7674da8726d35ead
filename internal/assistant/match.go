package assistant

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

// matcher performs the case-insensitive wake word comparisons for one
// recognition language.
type matcher struct {
	tag    language.Tag
	search *search.Matcher
}

func newMatcher(tag language.Tag) *matcher {
	return &matcher{
		tag:    tag,
		search: search.New(tag, search.IgnoreCase),
	}
}

// normalize trims s and lowercases it using the language's casing rules.
func (m *matcher) normalize(s string) string {
	return cases.Lower(m.tag).String(strings.TrimSpace(s))
}

// index returns the byte span of the first case-insensitive occurrence of
// word in text, or (-1, -1).
func (m *matcher) index(text, word string) (start, end int) {
	if word == "" {
		return -1, -1
	}
	return m.search.IndexString(text, word)
}

func (m *matcher) contains(text, word string) bool {
	start, _ := m.index(text, word)
	return start >= 0
}

// strip removes the first occurrence of word from text and trims the result.
func (m *matcher) strip(text, word string) string {
	start, end := m.index(text, word)
	if start < 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:start] + text[end:])
}

// NormalizeWakeWord applies the wake word validation rule: trimmed and
// lowercased for the given language. An empty result means the input is
// rejected.
func NormalizeWakeWord(tag language.Tag, word string) string {
	return newMatcher(tag).normalize(word)
}
