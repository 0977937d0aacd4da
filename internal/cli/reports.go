package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dgallion1/isdaudit/internal/extract"
	"github.com/dgallion1/isdaudit/internal/pipeline"
	"github.com/dgallion1/isdaudit/internal/reports"
)

func newReportsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "reports",
		Short:       "Manage saved reports",
		Annotations: map[string]string{storeAnnotation: "true"},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			saved, err := a.reports.List(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Key", "District", "Fiscal Year", "Saved"})
			for _, r := range saved {
				table.Append([]string{r.Key, r.Data.Label(), r.Data.FiscalYear, r.Timestamp.Local().Format(time.DateTime)})
			}
			table.Render()
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <key>",
		Short: "Print a saved record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.reports.Get(cmd.Context(), args[0])
			if err != nil {
				return notFound(err, args[0])
			}
			return reports.WriteJSON(cmd.OutOrStdout(), r.Data)
		},
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.reports.Delete(cmd.Context(), args[0]); err != nil {
				return notFound(err, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", reports.Key(args[0]))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.reports.Clear(cmd.Context())
		},
	}

	var exportOut string
	export := &cobra.Command{
		Use:   "export [key...]",
		Short: "Export saved records to a .json, .csv or .xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var recs []extract.FinancialRecord
			if len(args) == 0 {
				saved, err := a.reports.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range saved {
					recs = append(recs, r.Data)
				}
			}
			for _, key := range args {
				r, err := a.reports.Get(cmd.Context(), key)
				if err != nil {
					return notFound(err, key)
				}
				recs = append(recs, r.Data)
			}
			if len(recs) == 0 {
				return errors.New("no reports to export")
			}
			if exportOut == "" {
				exportOut = reports.ExportFilename(recs[0], "csv")
			}
			if err := writeRecords(exportOut, recs...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(recs), exportOut)
			return nil
		},
	}
	export.Flags().StringVarP(&exportOut, "out", "o", "", "Output file; the extension picks the format")

	var importName string
	imp := &cobra.Command{
		Use:   "import <record.json>",
		Short: "Validate a hand-entered record and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rec, err := reports.DecodeRecord(data)
			if err != nil {
				return err
			}
			name := importName
			if name == "" {
				name = filepath.Base(args[0])
			}
			r, err := a.reports.Save(cmd.Context(), name, pipeline.ContentHashHex(data), rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", r.Key)
			return nil
		},
	}
	imp.Flags().StringVar(&importName, "name", "", "Report name (default: the file name)")

	cmd.AddCommand(list, show, del, clearCmd, export, imp)
	return cmd
}

// writeRecords writes recs to path in the format its extension names.
func writeRecords(path string, recs ...extract.FinancialRecord) error {
	var write func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		write = func(w io.Writer) error {
			if len(recs) == 1 {
				return reports.WriteJSON(w, recs[0])
			}
			return reports.WriteJSON(w, recs)
		}
	case ".csv":
		write = func(w io.Writer) error { return reports.WriteCSV(w, recs...) }
	case ".xlsx":
		write = func(w io.Writer) error { return reports.WriteXLSX(w, recs...) }
	default:
		return fmt.Errorf("unsupported export format %q (want .json, .csv or .xlsx)", filepath.Ext(path))
	}
	return writeFile(path, write)
}

func notFound(err error, key string) error {
	if errors.Is(err, reports.ErrNotFound) {
		return fmt.Errorf("no report named %q", key)
	}
	return err
}
