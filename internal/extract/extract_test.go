package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/isdaudit/internal/document"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLog() *DebugLog {
	return NewDebugLog(discardLogger(), func() time.Time {
		return time.Date(2024, 9, 1, 14, 3, 7, 250_000_000, time.UTC)
	})
}

func TestExtractAmountLabelPriority(t *testing.T) {
	text := "assets 500\ntotal assets 1,000"
	got := ExtractAmount(text, LabelSet{"total assets", "assets"}, newTestLog())
	assert.Equal(t, int64(1000), got)
}

func TestExtractAmountSkipsZeroValues(t *testing.T) {
	text := strings.ToLower("Total Assets $0 ... Total Assets $ 4,200,000,000")
	got := ExtractAmount(text, LabelSet{"total assets"}, newTestLog())
	assert.Equal(t, int64(4200000000), got)
}

func TestExtractAmountPatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int64
	}{
		{"dollar", "total assets $ 12,345", 12345},
		{"whitespace", "total assets   77", 77},
		{"parenthesized", "total assets (9,000)", 9000},
		{"next line", "total assets\n  3,500", 3500},
		{"colon", "total assets: 42", 42},
		{"tab gap", "total assets\t\t81", 81},
		{"no digits", "total assets were not reported", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAmount(tt.text, LabelSet{"total assets"}, newTestLog())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAmountFuzzyFallback(t *testing.T) {
	log := newTestLog()
	got := ExtractAmount("general    fund\n 1,250", LabelSet{"general fund"}, log)
	assert.Equal(t, int64(1250), got)
	assert.Contains(t, strings.Join(log.Lines(), "\n"), "fuzzy")
}

func TestExtractAmountNotFoundLogsKeywords(t *testing.T) {
	log := newTestLog()
	got := ExtractAmount("nothing here", LabelSet{"local sources", "local revenue"}, log)
	assert.Zero(t, got)
	lines := log.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "[14:03:07.250] no amount found for keywords: [local sources local revenue]", lines[0])
}

func TestLocateSectionFallsBackToFullText(t *testing.T) {
	text := "annual report\ntotal assets $ 900"
	log := newTestLog()
	section := LocateSection(text, LabelSet{"statement of net position"}, log)
	assert.Equal(t, len(text), len(section))
	assert.Equal(t, int64(900), ExtractAmount(section, LabelSet{"total assets"}, log))
}

func TestLocateSectionFirstLabelWins(t *testing.T) {
	text := "net position summary ... statement of net position body"
	section := LocateSection(text, LabelSet{"statement of net position", "net position"}, newTestLog())
	assert.True(t, strings.HasPrefix(section, "statement of net position"))
}

func TestLocateSectionStopsAtNextHeading(t *testing.T) {
	body := strings.Repeat("x", 150)
	text := "balance sheet " + body + " statement of activities tail"
	section := LocateSection(text, LabelSet{"balance sheet"}, newTestLog())
	assert.Equal(t, "balance sheet "+body+" ", section)
}

func TestLocateSectionIgnoresHeadingInsideBuffer(t *testing.T) {
	// "schedule" falls within the first 100 characters and must not end the span.
	text := "balance sheet schedule a " + strings.Repeat("y", 200)
	section := LocateSection(text, LabelSet{"balance sheet"}, newTestLog())
	assert.Equal(t, text, section)
}

func TestLocateSectionCapsLength(t *testing.T) {
	text := "revenues " + strings.Repeat("z", 2*MaxSectionLength)
	section := LocateSection(text, LabelSet{"revenues"}, newTestLog())
	assert.Len(t, section, MaxSectionLength)
}

func TestLocateSectionCapsLengthInCharacters(t *testing.T) {
	text := "revenues " + strings.Repeat("é", 2*MaxSectionLength)
	section := LocateSection(text, LabelSet{"revenues"}, newTestLog())
	assert.Equal(t, MaxSectionLength, utf8.RuneCountInString(section))
	assert.True(t, utf8.ValidString(section))
}

func TestLocateSectionFuzzy(t *testing.T) {
	text := "intro\nbalance\n   sheet\ngeneral fund 10"
	log := newTestLog()
	section := LocateSection(text, LabelSet{"balance sheet"}, log)
	assert.True(t, strings.HasPrefix(section, "balance\n   sheet"))
}

func TestFuzzyLabel(t *testing.T) {
	assert.Equal(t, `general\s+fund`, FuzzyLabel("general fund"))
	assert.Equal(t, `fund[\s\p{P}]*balance[\s\p{P}]*general\s+fund`, FuzzyLabel("fund - balance - general fund"))
	assert.Equal(t, `government[\s\p{P}]*wide`, FuzzyLabel("government-wide"))
}

func TestMetadata(t *testing.T) {
	text := "annual financial report\nsample independent school district\nfor the year ended august 31, 2023"
	assert.Equal(t, "sample independent school district", DistrictName(strings.SplitN(text, "\n", 2)[1]))
	assert.Equal(t, "2023", FiscalYear(text))
	assert.Equal(t, "2021", FiscalYear("fiscal year 2021 ... august 31, 2020"))
	assert.Empty(t, DistrictName("city of austin"))
	assert.Empty(t, FiscalYear("no dates"))
}

func TestExtractTextEndToEnd(t *testing.T) {
	text := "STATEMENT OF NET POSITION\nTotal Assets $ 1,000,000\nTotal Liabilities $ 400,000\nNet Position $ 600,000"
	run := New(discardLogger()).ExtractText("audit.pdf", text)
	assert.Equal(t, NetPosition{TotalAssets: 1000000, TotalLiabilities: 400000, NetPosition: 600000}, run.Record.NetPosition)
}

func TestExtractTextEmptyDocument(t *testing.T) {
	for _, text := range []string{"", "lorem ipsum dolor sit amet"} {
		run := New(discardLogger()).ExtractText("garbage.pdf", text)
		assert.Equal(t, FinancialRecord{}, run.Record)
		assert.Empty(t, run.Record.DistrictName)
		assert.Empty(t, run.Record.FiscalYear)
	}
}

func TestExtractPagesFootnoteMarkerIsNotAnAmount(t *testing.T) {
	pages := [][]document.Fragment{{
		{Text: "Total Assets²", X: 10, Y: 700},
		{Text: "1,000,000", X: 300, Y: 700},
	}}
	run := New(discardLogger()).ExtractPages("footnote.pdf", pages)
	assert.Contains(t, run.Text, "Total Assets² 1,000,000")
	assert.NotEqual(t, int64(2), run.Record.NetPosition.TotalAssets)
}

func TestExtractFromLayer(t *testing.T) {
	layer := document.StaticLayer{
		{
			{Text: "Sample ISD", X: 10, Y: 760},
			{Text: "Balance Sheet", X: 10, Y: 740},
			{Text: "General Fund", X: 10, Y: 700},
			{Text: "$ 2,500,000", X: 300, Y: 701},
		},
		{
			{Text: "Fiscal Year 2022", X: 10, Y: 760},
		},
	}
	run, err := New(discardLogger()).Extract(context.Background(), "sample.pdf", layer)
	require.NoError(t, err)
	assert.Equal(t, int64(2500000), run.Record.FundBalance.GeneralFund)
	assert.Equal(t, "sample isd", run.Record.DistrictName)
	assert.Equal(t, "2022", run.Record.FiscalYear)
	assert.Contains(t, run.Text, "--- PAGE 2 ---")
}

type failingLayer struct{}

func (failingLayer) PageCount() int { return 2 }

func (failingLayer) ExtractPage(page int) ([]document.Fragment, error) {
	if page == 2 {
		return nil, errors.New("corrupt xref")
	}
	return []document.Fragment{{Text: "ok"}}, nil
}

type panickingLayer struct{}

func (panickingLayer) PageCount() int { return 1 }

func (panickingLayer) ExtractPage(int) ([]document.Fragment, error) { panic("bad stream") }

func TestExtractSourceUnavailable(t *testing.T) {
	ex := New(discardLogger())

	run, err := ex.Extract(context.Background(), "broken.pdf", failingLayer{})
	assert.Nil(t, run)
	var srcErr *SourceUnavailableError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, 2, srcErr.Page)
	assert.Contains(t, err.Error(), "corrupt xref")

	run, err = ex.Extract(context.Background(), "panic.pdf", panickingLayer{})
	assert.Nil(t, run)
	require.ErrorAs(t, err, &srcErr)
	assert.Contains(t, err.Error(), "bad stream")
}

func TestExtractCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(discardLogger()).Extract(ctx, "a.pdf", document.StaticLayer{{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDebugInfo(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	text := "Statement of Net Position\nTotal Assets $ 12,345,678\nBalance Sheet 1234567"
	run := New(discardLogger(), WithClock(clock)).ExtractText("a.pdf", text)

	info := run.DebugInfo()
	assert.Equal(t, "a.pdf", info.Filename)
	assert.Equal(t, clock(), info.Timestamp)
	assert.Equal(t, len(text), info.TextLength)
	assert.Equal(t, text, info.TextPreview)
	assert.Equal(t, text, info.FullExtractedText)
	assert.Equal(t, []string{"statement of net position", "balance sheet", "net position", "total assets"}, info.SectionsFound)
	assert.Equal(t, PatternCounts{DollarAmounts: 1, LargeNumbers: 2}, info.PatternCounts)
	assert.Equal(t, run.Record, info.ParsingResults)
	require.NotEmpty(t, info.DebugLogs)
	assert.True(t, strings.HasPrefix(info.DebugLogs[0], "[03:04:05.000] "))
}

func TestPreviewTruncatesByCharacters(t *testing.T) {
	text := strings.Repeat("é", PreviewLength+10)
	assert.Equal(t, PreviewLength, len([]rune(preview(text))))
}
