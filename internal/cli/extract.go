package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/isdaudit/internal/history"
	"github.com/dgallion1/isdaudit/internal/pipeline"
	"github.com/dgallion1/isdaudit/internal/reports"
)

type extractCmd struct {
	app      *app
	debug    bool
	debugOut string
	out      string
	force    bool
}

func newExtractCmd(a *app) *cobra.Command {
	ec := &extractCmd{app: a}
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract the financial record from one audit report",
		Args:  cobra.ExactArgs(1),
		RunE:  ec.run,
	}
	cmd.Flags().BoolVar(&ec.debug, "debug", false, "Print the debug bundle instead of the record")
	cmd.Flags().StringVar(&ec.debugOut, "debug-out", "", "Write the debug bundle to this file")
	cmd.Flags().StringVar(&ec.out, "out", "", "Write the record to this file (.json, .csv or .xlsx)")
	cmd.Flags().BoolVar(&ec.force, "force", false, "Extract even if identical text was already saved")
	return cmd
}

func (ec *extractCmd) run(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := readLimited(path, ec.app.cfg.MaxFileBytes)
	if err != nil {
		return err
	}

	job := pipeline.NewJob(filepath.Base(path), data, ec.force)
	pipeline.NewWorker(ec.app.deps(), ec.app.log).Process(cmd.Context(), job)

	snap := job.Snapshot()
	errOut := cmd.ErrOrStderr()
	switch snap.Status {
	case pipeline.StatusFailed:
		return fmt.Errorf("extract %s: %s", path, strings.Join(snap.Errors, "; "))
	case pipeline.StatusDupSkipped:
		fmt.Fprintf(errOut, "identical text already saved as %q; use --force to save again\n", snap.Result.ReportKey)
	case pipeline.StatusPartial:
		for _, e := range snap.Errors {
			fmt.Fprintf(errOut, "warning: %s\n", e)
		}
	}

	res := snap.Result
	if ec.debugOut != "" {
		if err := writeFile(ec.debugOut, func(w io.Writer) error {
			return history.WriteJSON(w, res.Debug)
		}); err != nil {
			return err
		}
	}
	if ec.out != "" {
		if err := writeRecords(ec.out, res.Record); err != nil {
			return err
		}
	}

	if ec.debug {
		return history.WriteJSON(cmd.OutOrStdout(), res.Debug)
	}
	return reports.WriteJSON(cmd.OutOrStdout(), res.Record)
}
