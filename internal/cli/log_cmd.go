package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect, export or import the durable symptom log",
	}

	cmd.AddCommand(
		newLogListCmd(app),
		newLogExportCmd(app),
		newLogImportCmd(app),
	)

	return cmd
}

func newLogListCmd(app *App) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored symptom log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return errNoStore
			}
			ctx := cmd.Context()

			entries, err := app.Store.List(ctx, limit, offset)
			if err != nil {
				return fmt.Errorf("listing symptom log: %w", err)
			}
			total, err := app.Store.Count(ctx)
			if err != nil {
				return fmt.Errorf("counting symptom log: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No symptom log entries.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, append(e.SymptomLogRecord.Row(), shortID(e.ID)))
			}
			fmt.Fprint(out, renderTable([]string{"DATE", "FLARE", "PAIN", "BLOATING", "ROME", "ID"}, rows))
			fmt.Fprintln(out, styleDim.Render(fmt.Sprintf("%d of %d entries", len(entries), total)))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")

	return cmd
}

func newLogExportCmd(app *App) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the symptom log as versioned JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return errNoStore
			}
			if outPath == "" {
				return app.Store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}

			file, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer file.Close()

			if err := app.Store.ExportJSON(cmd.Context(), file); err != nil {
				return fmt.Errorf("exporting symptom log: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported symptom log to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")

	return cmd
}

func newLogImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import entries from a JSON export, skipping ones already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return errNoStore
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer file.Close()

			imported, skipped, err := app.Store.ImportJSON(cmd.Context(), file)
			if err != nil {
				return fmt.Errorf("importing symptom log: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries, skipped %d\n", imported, skipped)
			return nil
		},
	}
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
