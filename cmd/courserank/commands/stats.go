package commands

import (
	"log/slog"

	"courserank-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the row counts of the staging and target dbs.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, source := openStaging()
		defer database.Close()
		counts, err := source.Counts(ctx)
		if err != nil {
			serviceutil.Fatal("failed to count staging rows", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Store", "Table", "Rows"})
		t.AppendRows([]table.Row{
			{"staging", "departments", counts.Departments},
			{"staging", "professors", counts.Professors},
			{"staging", "courses", counts.Courses},
			{"staging", "comments", counts.Comments},
		})

		if config.Target.Dsn == "" {
			slog.Warn("no target database configured, only showing staging")
		} else {
			store := openTarget(ctx)
			defer store.Close()
			targetCounts, err := store.Counts(ctx)
			if err != nil {
				serviceutil.Fatal("failed to count target rows", err)
			}
			t.AppendSeparator()
			for _, c := range targetCounts {
				t.AppendRow(table.Row{"target", c.Table, c.Rows})
			}
		}

		t.Render()
	},
}
