package commands

import (
	"log/slog"
	"time"

	"courserank-backend/lib/serviceutil"
	"courserank-backend/services/migration"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Replaces the rating tables of the target db with the staged crawl.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, source := openStaging()
		defer database.Close()
		store := openTarget(ctx)
		defer store.Close()

		t1 := time.Now()
		report, err := migration.NewMigrator(source, store, config.Policy).Migrate(ctx)
		if err != nil {
			serviceutil.Fatal("migration failed", err)
		}
		slog.Info("migration time", "seconds", time.Since(t1).Seconds())

		t := newTable()
		t.AppendHeader(table.Row{"Table", "Rows"})
		t.AppendRows([]table.Row{
			{"departments", report.Departments},
			{"courses", report.Courses},
			{"course_departments", report.CourseDepartments},
			{"professors", report.Professors},
			{"ratings", report.Ratings},
			{"professor_course_ratings", report.CourseRatings},
			{"professor_cumulative_ratings", report.CumulativeRatings},
			{"course_ucores", report.CatalogLinks},
		})
		t.AppendFooter(table.Row{"total", report.Total()})
		t.Render()
	},
}
