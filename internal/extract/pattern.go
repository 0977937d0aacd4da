package extract

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// patternCache memoizes compiled expressions. Label tables are fixed, so
// the cache stays small.
var patternCache sync.Map

func compile(expr string) *regexp.Regexp {
	if re, ok := patternCache.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(expr)
	actual, _ := patternCache.LoadOrStore(expr, re)
	return actual.(*regexp.Regexp)
}

// FuzzyLabel turns a label into a pattern fragment that tolerates reflow
// artifacts. Whitespace runs match one or more whitespace characters;
// runs containing punctuation become optional whitespace or punctuation.
func FuzzyLabel(label string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(label))
	for i := 0; i < len(runes); {
		r := runes[i]
		if !isSeparator(r) {
			b.WriteString(regexp.QuoteMeta(string(r)))
			i++
			continue
		}
		punct := false
		for i < len(runes) && isSeparator(runes[i]) {
			if !unicode.IsSpace(runes[i]) {
				punct = true
			}
			i++
		}
		if punct {
			b.WriteString(`[\s\p{P}]*`)
		} else {
			b.WriteString(`\s+`)
		}
	}
	return b.String()
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

// findIndex returns the start of the first case-insensitive match of expr.
func findIndex(text, expr string) (int, bool) {
	loc := compile(`(?i)` + expr).FindStringIndex(text)
	if loc == nil {
		return 0, false
	}
	return loc[0], true
}
