package extract

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	// MaxSectionLength bounds a located section, in characters.
	MaxSectionLength = 8000
	// nextSectionBuffer is skipped past the match before looking for the
	// following heading, so the matched heading itself never ends the span.
	nextSectionBuffer = 100
)

// LocateSection returns the part of text most likely holding the section
// named by labels. With no match it returns text unchanged.
func LocateSection(text string, labels LabelSet, log *DebugLog) string {
	start, label, ok := findSection(text, labels)
	if !ok {
		log.Addf("no section found for keywords: %v, using full text", []string(labels))
		return text
	}

	end := advance(text, start, MaxSectionLength)
	if from := advance(text, start, nextSectionBuffer); from < len(text) {
		for _, p := range nextSectionPatterns {
			if idx, ok := findIndex(text[from:], p); ok && from+idx < end {
				end = from + idx
			}
		}
	}

	section := text[start:end]
	log.Addf("found section using keyword %q, length %d", label, utf8.RuneCountInString(section))
	return section
}

// advance returns the byte offset n characters past start, or len(text).
func advance(text string, start, n int) int {
	i := start
	for ; n > 0 && i < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i
}

func findSection(text string, labels LabelSet) (int, string, bool) {
	for _, label := range labels {
		if idx, ok := findIndex(text, regexp.QuoteMeta(label)); ok {
			return idx, label, true
		}
	}
	for _, label := range labels {
		if idx, ok := findIndex(text, FuzzyLabel(label)); ok {
			return idx, fmt.Sprintf("%s (fuzzy)", label), true
		}
	}
	return 0, "", false
}
