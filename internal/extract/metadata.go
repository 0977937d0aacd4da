package extract

import (
	"regexp"
	"strings"
)

var districtPattern = regexp.MustCompile(`(?i)([a-z\s]+(?:independent school district|isd))`)

var fiscalYearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)fiscal year (\d{4})`),
	regexp.MustCompile(`(?i)year ended august 31, (\d{4})`),
	regexp.MustCompile(`(?i)august 31, (\d{4})`),
}

// DistrictName returns the first "<words> independent school district" or
// "<words> isd" phrase, trimmed, or "" when absent.
func DistrictName(text string) string {
	m := districtPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// FiscalYear returns the year from the first matching pattern, or "".
func FiscalYear(text string) string {
	for _, re := range fiscalYearPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}
