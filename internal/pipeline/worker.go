package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/isdaudit/internal/extract"
	"github.com/dgallion1/isdaudit/internal/history"
	"github.com/dgallion1/isdaudit/internal/parser"
	"github.com/dgallion1/isdaudit/internal/reports"
)

// ReportStore is the subset of reports.Store the worker needs.
type ReportStore interface {
	FindByHash(ctx context.Context, contentHash string) (reports.Report, error)
	Save(ctx context.Context, filename, contentHash string, rec extract.FinancialRecord) (reports.Report, error)
}

// Notifier delivers a debug bundle somewhere outside the process.
type Notifier interface {
	Deliver(ctx context.Context, payload any) error
}

// Worker processes a single document job.
type Worker struct {
	extractor *extract.Extractor
	reports   ReportStore
	history   *history.Recorder
	notifier  Notifier
	parseOpts parser.Options
	stats     *RunStats
	log       *slog.Logger
}

// Deps wires a Worker. Reports, History and Notifier are optional.
type Deps struct {
	Extractor *extract.Extractor
	Reports   ReportStore
	History   *history.Recorder
	Notifier  Notifier
	ParseOpts parser.Options
	Stats     *RunStats
}

func NewWorker(d Deps, log *slog.Logger) *Worker {
	if d.Extractor == nil {
		d.Extractor = extract.New(log)
	}
	if d.Stats == nil {
		d.Stats = NewRunStats(time.Hour)
	}
	return &Worker{
		extractor: d.Extractor,
		reports:   d.Reports,
		history:   d.History,
		notifier:  d.Notifier,
		parseOpts: d.ParseOpts,
		stats:     d.Stats,
		log:       log,
	}
}

// Process runs the full extraction pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	start := time.Now()
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	result := &Result{}

	finish := func(status JobStatus, phase string) {
		result.Duration = time.Since(start)
		job.setResult(result)
		w.stats.Record(status, result.Duration)
		job.SetStatus(status, phase)
		log.Info("job finished", "status", status, "duration_ms", result.Duration.Milliseconds())
	}
	fail := func(phase string, err error) {
		log.Error("job failed", "phase", phase, "error", err)
		job.AddError(err.Error())
		result = &Result{}
		finish(StatusFailed, phase)
	}

	// Phase 1: Read
	job.SetStatus(StatusReading, "reading")
	p, err := parser.ForFile(job.Filename, w.parseOpts)
	if err != nil {
		fail("reading", err)
		return
	}
	layer, err := p.Open(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		fail("reading", &extract.SourceUnavailableError{Filename: job.Filename, Err: err})
		return
	}

	// Phase 2: Extract
	job.SetStatus(StatusExtracting, "extracting")
	run, err := w.extractor.Extract(ctx, job.Filename, layer)
	if err != nil {
		fail("extracting", err)
		return
	}
	result.Record = run.Record
	result.Debug = run.DebugInfo()
	job.setContentHash(ContentHashHex([]byte(run.Text)))
	hash := job.Snapshot().ContentHash

	if w.reports != nil && !job.Force {
		existing, err := w.reports.FindByHash(ctx, hash)
		switch {
		case err == nil:
			log.Info("duplicate document, skipping", "existing_report", existing.Key)
			result.ReportKey = existing.Key
			finish(StatusDupSkipped, "dedup")
			return
		case !errors.Is(err, reports.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	hadErrors := false
	if w.reports != nil {
		saved, err := w.reports.Save(ctx, job.Filename, hash, run.Record)
		if err != nil {
			log.Error("report save failed", "error", err)
			job.AddError(fmt.Sprintf("save report: %s", err))
			hadErrors = true
		} else {
			result.ReportKey = saved.Key
		}
	}
	if w.history != nil && !w.history.Export(ctx, result.Debug) {
		job.AddError("history export failed")
		hadErrors = true
	}
	if w.notifier != nil {
		if err := w.notifier.Deliver(ctx, history.NewSession(result.Debug)); err != nil {
			log.Error("webhook delivery failed", "error", err)
			job.AddError(fmt.Sprintf("webhook: %s", err))
			hadErrors = true
		}
	}

	if hadErrors {
		finish(StatusPartial, "done")
		return
	}
	finish(StatusCompleted, "done")
}
