package commands

import (
	"log/slog"

	"courserank-backend/lib/serviceutil"
	"courserank-backend/services/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var dryRun bool

func init() {
	catalogFetchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Prints the fetched catalog without writing it.")
	catalogCmd.AddCommand(catalogFetchCmd)
	catalogCmd.AddCommand(catalogDesignationsCmd)
	rootCmd.AddCommand(catalogCmd)
}

func newFetcher() *catalog.Fetcher {
	return catalog.NewFetcher(catalog.Options{
		ApiURL:    config.Catalog.ApiUrl,
		SearchURL: config.Catalog.SearchUrl,
		Output:    httpOutput("catalog"),
	})
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Reads the university course catalog.",
}

var catalogFetchCmd = &cobra.Command{
	Use:   "fetch [--dry-run]",
	Short: "Fetches the catalog by designation and replaces the catalog tables of the target db.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		fetcher := newFetcher()

		designations := config.Catalog.Designations
		if len(designations) == 0 {
			var err error
			designations, err = fetcher.DiscoverDesignations(ctx)
			if err != nil {
				slog.Warn("failed to discover designations, using defaults", "err", err)
				designations = catalog.DefaultDesignations
			}
		}

		courses, err := fetcher.Fetch(ctx, designations)
		if err != nil {
			serviceutil.Fatal("failed to fetch catalog", err)
		}

		if dryRun {
			t := newTable()
			t.AppendHeader(table.Row{"Course", "Designation", "Name", "Credits"})
			for _, c := range courses {
				t.AppendRow(table.Row{c.CourseID, c.Designation, c.DisplayName, c.Credits})
			}
			t.Render()
			return
		}

		store := openTarget(ctx)
		defer store.Close()
		links, err := store.ReplaceCatalog(ctx, courses, config.Policy.LinkThreshold)
		if err != nil {
			serviceutil.Fatal("failed to write catalog", err)
		}
		slog.Info("catalog refreshed", "courses", len(courses), "linked_courses", links)
	},
}

var catalogDesignationsCmd = &cobra.Command{
	Use:   "designations",
	Short: "Lists the designation codes offered by the catalog.",
	Run: func(cmd *cobra.Command, args []string) {
		designations, err := newFetcher().DiscoverDesignations(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to discover designations", err)
		}
		t := newTable()
		t.AppendHeader(table.Row{"Designation"})
		for _, d := range designations {
			t.AppendRow(table.Row{d})
		}
		t.Render()
	},
}
