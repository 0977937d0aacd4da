// Package extract turns audit report text into a FinancialRecord.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/isdaudit/internal/document"
	"github.com/dgallion1/isdaudit/internal/reflow"
)

// SourceUnavailableError means the text layer could not produce the
// document text. It is the only failure an extraction reports.
type SourceUnavailableError struct {
	Filename string
	Page     int
	Err      error
}

func (e *SourceUnavailableError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("source unavailable: %s page %d: %v", e.Filename, e.Page, e.Err)
	}
	return fmt.Sprintf("source unavailable: %s: %v", e.Filename, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// Extractor runs extractions. It holds no per-document state and is safe
// for concurrent use.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the time source used for debug timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func New(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run is the outcome of one extraction.
type Run struct {
	Filename string
	Record   FinancialRecord
	Text     string
	Started  time.Time
	log      *DebugLog
}

// DebugInfo bundles the diagnostics for the run.
func (r *Run) DebugInfo() DebugInfo {
	return DebugInfo{
		Filename:          r.Filename,
		Timestamp:         r.Started,
		TextLength:        utf8.RuneCountInString(r.Text),
		TextPreview:       preview(r.Text),
		SectionsFound:     sectionsPresent(r.Text),
		PatternCounts:     countPatterns(r.Text),
		DebugLogs:         r.log.Lines(),
		ParsingResults:    r.Record,
		FullExtractedText: r.Text,
	}
}

// Extract reads every page of layer, reflows it and extracts the record.
func (e *Extractor) Extract(ctx context.Context, filename string, layer document.TextLayer) (run *Run, err error) {
	defer func() {
		if r := recover(); r != nil {
			run = nil
			err = &SourceUnavailableError{Filename: filename, Err: fmt.Errorf("text layer panic: %v", r)}
		}
	}()

	n := layer.PageCount()
	pages := make([][]document.Fragment, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frags, err := layer.ExtractPage(i)
		if err != nil {
			return nil, &SourceUnavailableError{Filename: filename, Page: i, Err: err}
		}
		pages = append(pages, frags)
	}
	return e.ExtractPages(filename, pages), nil
}

// ExtractPages extracts from fragments that were already read.
func (e *Extractor) ExtractPages(filename string, pages [][]document.Fragment) *Run {
	return e.ExtractText(filename, reflow.Document(pages))
}

// ExtractText extracts from assembled document text. It never fails:
// anything not found is left at its zero value.
func (e *Extractor) ExtractText(filename, text string) *Run {
	log := e.logger.With("filename", filename)
	run := &Run{
		Filename: filename,
		Text:     text,
		Started:  e.now(),
		log:      NewDebugLog(log, e.now),
	}

	run.log.Addf("extracting from %d characters of text", utf8.RuneCountInString(text))
	lower := strings.ToLower(text)

	for _, cat := range Categories {
		section := LocateSection(lower, cat.Sections, run.log)
		for _, f := range cat.Fields {
			f.Set(&run.Record, ExtractAmount(section, f.Labels, run.log))
		}
	}

	run.Record.DistrictName = DistrictName(lower)
	run.Record.FiscalYear = FiscalYear(lower)
	run.log.Addf("metadata: district=%q fiscalYear=%q", run.Record.DistrictName, run.Record.FiscalYear)

	log.Info("extraction complete",
		"district", run.Record.Label(),
		"fiscal_year", run.Record.FiscalYear,
		"text_length", len(text),
	)
	return run
}
