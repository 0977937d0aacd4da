// Package cli is the isdaudit command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/isdaudit/internal/config"
	"github.com/dgallion1/isdaudit/internal/history"
	"github.com/dgallion1/isdaudit/internal/parser"
	"github.com/dgallion1/isdaudit/internal/pipeline"
	"github.com/dgallion1/isdaudit/internal/reports"
	"github.com/dgallion1/isdaudit/internal/storage"
	"github.com/dgallion1/isdaudit/internal/webhook"
)

// app holds what every command shares once PersistentPreRunE has run.
type app struct {
	cfgPath string

	cfg      config.Config
	log      *slog.Logger
	db       *storage.DB
	reports  *reports.Store
	sessions history.Store
	history  *history.Recorder
}

// NewRootCmd builds the isdaudit command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "isdaudit",
		Short:         "Extract financial figures from school district audit reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "Path to a config file (yaml, json or toml)")

	root.AddCommand(
		newExtractCmd(a),
		newBatchCmd(a),
		newWatchCmd(a),
		newReportsCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.log = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cmd.Context(), cfg.StoreDriver, cfg.StoreDSN, a.log)
	if err != nil {
		if needsStore(cmd) {
			return fmt.Errorf("failed to open store: %w", err)
		}
		// Extraction goes on without saved reports; history lives in memory.
		a.log.Warn("store unavailable, results will not be saved", "driver", cfg.StoreDriver, "error", err)
		a.sessions = history.NewMemoryStore()
		a.history = history.NewRecorder(a.sessions, a.log)
		return nil
	}
	a.db = db
	a.reports = reports.NewStore(db)
	a.sessions = history.NewSQLStore(db)
	a.history = history.NewRecorder(a.sessions, a.log)
	return nil
}

// storeAnnotation marks commands that only work against the store.
const storeAnnotation = "isdaudit/requires-store"

func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[storeAnnotation]; ok {
			return true
		}
	}
	return false
}

// deps wires the pipeline to the opened store and, when configured, the
// webhook.
func (a *app) deps() pipeline.Deps {
	d := pipeline.Deps{
		History:   a.history,
		ParseOpts: parser.Options{FallbackPdftotext: a.cfg.PDFFallbackPdftotext},
	}
	if a.reports != nil {
		d.Reports = a.reports
	}
	if a.cfg.WebhookURL != "" {
		d.Notifier = webhook.NewClient(a.cfg.WebhookURL, a.cfg.WebhookTimeout, a.log)
	}
	return d
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
