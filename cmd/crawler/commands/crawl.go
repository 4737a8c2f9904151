package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"nhlcrawl-backend/lib/nhl"
	"nhlcrawl-backend/lib/serviceutil"
	"nhlcrawl-backend/services/crawler"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	startDate       *string
	endDate         *string
	workers         *int
	skipFailed      *bool
	partitionByDate *bool
	runTimeout      *time.Duration
)

func init() {
	startDate = crawlCmd.Flags().String("start_date", "", "YYYY-MM-DD")
	endDate = crawlCmd.Flags().String("end_date", "", "YYYY-MM-DD")
	workers = crawlCmd.Flags().Int("workers", 1, "Concurrent game fetches, 1 keeps the crawl sequential.")
	skipFailed = crawlCmd.Flags().Bool("skip-failed", false, "Log failed games and continue instead of aborting the run.")
	partitionByDate = crawlCmd.Flags().Bool("partition-by-date", false, "Prefix storage keys with the schedule date.")
	runTimeout = crawlCmd.Flags().Duration("timeout", 0, "Overall run deadline, 0 means none.")
	crawlCmd.MarkFlagRequired("start_date")
	crawlCmd.MarkFlagRequired("end_date")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl --start_date <YYYY-MM-DD> --end_date <YYYY-MM-DD>",
	Short: "Crawls the schedule and writes one CSV per game to the destination bucket.",
	Run: func(cmd *cobra.Command, args []string) {
		dates, err := nhl.ParseDateRange(*startDate, *endDate)
		if err != nil {
			serviceutil.Fatal("invalid date range", err)
		}

		store, err := crawler.NewMinioStore(crawler.MinioOptions{
			EndpointURL:     getEnv("S3_ENDPOINT_URL", "http://localhost:9000"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Region:          os.Getenv("S3_REGION"),
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize object store client", err)
		}
		storage := crawler.NewStorage(store, getEnv("DEST_BUCKET", "output"))

		api := nhl.NewClient(nhl.ClientOptions{
			BaseUrl: os.Getenv("NHL_API_BASE"),
		})

		ctx := cmd.Context()
		if *runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, *runTimeout)
			defer cancel()
		}

		if err := storage.Init(ctx); err != nil {
			serviceutil.Fatal("failed to prepare destination bucket", err)
		}

		svc := crawler.NewService(api, storage, crawler.Options{
			SkipFailedGames: *skipFailed,
			Workers:         *workers,
			PartitionByDate: *partitionByDate,
		})

		t1 := time.Now()
		summary, err := svc.Crawl(ctx, dates)
		t2 := time.Now()
		if err != nil {
			serviceutil.Fatal("crawl failed", err)
		}

		slog.Info("crawl time", "seconds", t2.Sub(t1).Seconds())
		printSummary(summary)
	},
}

func printSummary(summary crawler.Summary) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "Games Written"})
	for _, day := range summary.Dates {
		t.AppendRow(table.Row{day.Date, day.GamesWritten})
	}
	t.AppendFooter(table.Row{"rows written", summary.RowsWritten})
	t.Render()

	for _, failure := range summary.Failures {
		slog.Warn(
			"game skipped",
			"game_id", failure.GameID,
			"date", failure.Date,
			"err", failure.Err,
		)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
