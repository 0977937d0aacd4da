package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dgallion1/isdaudit/internal/pipeline"
)

type batchCmd struct {
	app   *app
	force bool
}

func newBatchCmd(a *app) *cobra.Command {
	bc := &batchCmd{app: a}
	cmd := &cobra.Command{
		Use:   "batch <file|dir>...",
		Short: "Extract every supported document under the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE:  bc.run,
	}
	cmd.Flags().BoolVar(&bc.force, "force", false, "Extract even if identical text was already saved")
	return cmd
}

func (bc *batchCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported documents found")
	}

	orch := pipeline.NewOrchestrator(pipeline.Options{
		MaxQueueSize: bc.app.cfg.MaxQueueSize,
		JobTTL:       bc.app.cfg.JobTTL,
	}, bc.app.deps(), bc.app.log)
	orch.Start(ctx)
	defer orch.Stop()

	jobs := make([]*pipeline.Job, 0, len(files))
	for _, path := range files {
		data, err := readLimited(path, bc.app.cfg.MaxFileBytes)
		if err != nil {
			bc.app.log.Error("skipping file", "path", path, "error", err)
			continue
		}
		job := pipeline.NewJob(filepath.Base(path), data, bc.force)
		if err := orch.Enqueue(ctx, job); err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"File", "Status", "District", "Fiscal Year", "Report", "Duration"})
	table.SetAutoWrapText(false)

	failed := 0
	for _, job := range jobs {
		snap, err := job.Wait(ctx)
		if err != nil {
			return err
		}
		row := []string{snap.Filename, string(snap.Status), "", "", "", ""}
		if r := snap.Result; r != nil {
			row[2] = r.Record.Label()
			row[3] = r.Record.FiscalYear
			row[4] = r.ReportKey
			row[5] = r.Duration.Round(time.Millisecond).String()
		}
		if snap.Status == pipeline.StatusFailed {
			failed++
			row[2] = strings.Join(snap.Errors, "; ")
		}
		table.Append(row)
	}
	table.Render()

	stats := orch.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%d documents, avg %sms, p95 %sms, max %sms\n",
		stats.Count, ms(stats.AvgMs), ms(stats.P95Ms), ms(float64(stats.MaxMs)))

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(jobs))
	}
	return nil
}

func ms(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
