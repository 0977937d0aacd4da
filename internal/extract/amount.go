package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const digits = `(\d[\d,]*)`

// valuePatterns follow a label with a number, in priority order:
// optional currency or punctuation, whitespace, a dollar sign, parentheses,
// a line break, a colon, and finally a column gap of two or more blanks.
var valuePatterns = []string{
	`[\s$,()]*` + digits,
	`\s+` + digits,
	`\s*\$\s*` + digits,
	`\s*\(` + digits + `\)`,
	`[ \t]*\r?\n\s*` + digits,
	`\s*:\s*` + digits,
	`[ \t]{2,}` + digits,
}

// ExtractAmount returns the first positive value that follows one of
// labels in section, or 0 when none does.
func ExtractAmount(section string, labels LabelSet, log *DebugLog) int64 {
	for _, label := range labels {
		quoted := regexp.QuoteMeta(label)
		for i, p := range valuePatterns {
			if v, raw, ok := firstPositive(section, quoted+p); ok {
				log.Addf("found amount for %q with pattern %d: %s -> %d", label, i+1, raw, v)
				return v
			}
		}
	}

	for _, label := range labels {
		if v, raw, ok := firstPositive(section, FuzzyLabel(label)+valuePatterns[0]); ok {
			log.Addf("found amount for %q with fuzzy pattern: %s -> %d", label, raw, v)
			return v
		}
	}

	log.Addf("no amount found for keywords: %v", []string(labels))
	return 0
}

// firstPositive scans every match of expr and accepts the first one whose
// digits parse to a value above zero.
func firstPositive(text, expr string) (int64, string, bool) {
	for _, m := range compile(`(?i)`+expr).FindAllStringSubmatch(text, -1) {
		raw := m[1]
		v, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
		if err == nil && v > 0 {
			return v, raw, true
		}
	}
	return 0, "", false
}
