package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dgallion1/isdaudit/internal/history"
	"github.com/dgallion1/isdaudit/internal/webhook"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "history",
		Short:       "Inspect recent extraction debug sessions",
		Annotations: map[string]string{storeAnnotation: "true"},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List debug sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"#", "File", "District", "Text Length", "Sections", "Time"})
			for i, s := range a.history.List(cmd.Context()) {
				table.Append([]string{
					strconv.Itoa(i),
					s.Filename,
					s.DistrictName,
					strconv.Itoa(s.TextLength),
					strconv.Itoa(s.SectionsFound),
					s.Timestamp.Local().Format(time.DateTime),
				})
			}
			table.Render()
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <index>",
		Short: "Print a debug session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sessionAt(cmd, a, args[0])
			if err != nil {
				return err
			}
			return history.WriteJSON(cmd.OutOrStdout(), s)
		},
	}

	var exportDir string
	export := &cobra.Command{
		Use:   "export <index>",
		Short: "Write a debug session to pdf-debug-<name>-<time>.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sessionAt(cmd, a, args[0])
			if err != nil {
				return err
			}
			path := filepath.Join(exportDir, history.ExportFilename(s))
			if err := writeFile(path, func(w io.Writer) error { return history.WriteJSON(w, s) }); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	export.Flags().StringVar(&exportDir, "dir", ".", "Directory to write the file to")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all debug sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.history.Clear(cmd.Context())
			return nil
		},
	}

	var sendURL string
	send := &cobra.Command{
		Use:   "send <index>",
		Short: "POST a debug session to a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := sendURL
			if url == "" {
				url = a.cfg.WebhookURL
			}
			if url == "" {
				return fmt.Errorf("no webhook URL: pass --url or set WEBHOOK_URL")
			}
			s, err := sessionAt(cmd, a, args[0])
			if err != nil {
				return err
			}
			client := webhook.NewClient(url, a.cfg.WebhookTimeout, a.log)
			defer client.Close()
			if err := client.Deliver(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", s.Filename)
			return nil
		},
	}
	send.Flags().StringVar(&sendURL, "url", "", "Webhook URL (default: WEBHOOK_URL)")

	cmd.AddCommand(list, show, export, clearCmd, send)
	return cmd
}

func sessionAt(cmd *cobra.Command, a *app, arg string) (history.Session, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return history.Session{}, fmt.Errorf("invalid session index %q", arg)
	}
	return history.At(cmd.Context(), a.sessions, i)
}
