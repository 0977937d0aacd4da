package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// DebugLog collects timestamped decision lines for one extraction run.
// A nil *DebugLog discards everything.
type DebugLog struct {
	mu     sync.Mutex
	lines  []string
	now    func() time.Time
	logger *slog.Logger
}

func NewDebugLog(logger *slog.Logger, now func() time.Time) *DebugLog {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &DebugLog{now: now, logger: logger}
}

func (l *DebugLog) Addf(format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Log(context.Background(), slog.LevelDebug, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("[%s] %s", l.now().Format("15:04:05.000"), msg))
}

// Lines returns a copy of the collected lines.
func (l *DebugLog) Lines() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// PreviewLength is the number of characters kept in DebugInfo.TextPreview.
const PreviewLength = 2000

// PatternCounts are rough signals of how much numeric content the text has.
type PatternCounts struct {
	DollarAmounts int `json:"dollarAmounts"`
	LargeNumbers  int `json:"largeNumbers"`
}

// DebugInfo is the diagnostic bundle for one extraction run.
type DebugInfo struct {
	Filename          string          `json:"filename"`
	Timestamp         time.Time       `json:"timestamp"`
	TextLength        int             `json:"textLength"`
	TextPreview       string          `json:"textPreview"`
	SectionsFound     []string        `json:"sectionsFound"`
	PatternCounts     PatternCounts   `json:"patternCounts"`
	DebugLogs         []string        `json:"debugLogs"`
	ParsingResults    FinancialRecord `json:"parsingResults"`
	FullExtractedText string          `json:"fullExtractedText"`
}

var (
	dollarPattern    = regexp.MustCompile(`\$\s*\d[\d,]*`)
	largeNumberToken = regexp.MustCompile(`\d[\d,]*`)
)

// sectionsPresent re-scans text for canonical headings, independent of
// which spans the extraction used.
func sectionsPresent(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0, len(SectionKeywords))
	for _, kw := range SectionKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func countPatterns(text string) PatternCounts {
	var pc PatternCounts
	pc.DollarAmounts = len(dollarPattern.FindAllStringIndex(text, -1))
	for _, tok := range largeNumberToken.FindAllString(text, -1) {
		if len(tok)-strings.Count(tok, ",") >= 7 {
			pc.LargeNumbers++
		}
	}
	return pc
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength])
}
