package commands

import (
	"log/slog"
	"time"

	"courserank-backend/lib/serviceutil"
	"courserank-backend/services/comments"
	"courserank-backend/services/directory"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	crawlCmd.AddCommand(crawlDirectoryCmd)
	crawlCmd.AddCommand(crawlCommentsCmd)
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawls the rating site into the staging db.",
}

var crawlDirectoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Crawls the professor listing, replacing every staged record.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, store := openStaging()
		defer database.Close()
		page := launchBrowser(ctx)
		defer page.Close()

		t1 := time.Now()
		crawler := directory.NewCrawler(page, store, config.directoryOptions())
		result, err := crawler.Crawl(ctx, config.RatingSite.ListingUrl)
		if err != nil {
			serviceutil.Fatal("directory crawl failed", err)
		}
		slog.Info("crawl time", "seconds", time.Since(t1).Seconds())

		t := newTable()
		t.AppendHeader(table.Row{"Professors", "Departments"})
		t.AppendRow(table.Row{len(result.Professors), result.Departments.Len()})
		t.Render()
	},
}

var crawlCommentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Extracts the ratings of every staged professor, replacing staged courses and comments.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, store := openStaging()
		defer database.Close()
		page := launchBrowser(ctx)
		defer page.Close()

		t1 := time.Now()
		extraction := comments.NewExtraction(page, store, config.commentsOptions())
		stats, err := extraction.Run(ctx)
		if err != nil {
			serviceutil.Fatal("rating extraction failed", err)
		}
		slog.Info("crawl time", "seconds", time.Since(t1).Seconds())

		t := newTable()
		t.AppendHeader(table.Row{"Professors", "Failed", "Courses", "Comments", "Interrupted"})
		t.AppendRow(table.Row{stats.Professors, stats.Failed, stats.Courses, stats.Comments, stats.Interrupted})
		t.Render()
	},
}
