package commands

import (
	"time"

	"anidata-backend/lib/util/serviceutil"
	"anidata-backend/services/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var titlesStartAt *int

func init() {
	titlesStartAt = titlesCmd.Flags().Int("start-at", 0, "Zero-based offset into top_anime.csv to resume from.")
	rootCmd.AddCommand(titlesCmd)
}

var titlesCmd = &cobra.Command{
	Use:   "titles <ranking-file> [--start-at <offset>]",
	Short: "Scrapes detail records and reviews for every title id in a ranking file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc, err := catalog.NewService(catalog.Options{
			SiteUrl:   cfg.SiteUrl,
			UserAgent: cfg.UserAgent,
			OutputDir: cfg.OutputDir,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize catalog service", err)
		}

		t1 := time.Now()
		processed, err := svc.ScrapeTitles(cmd.Context(), args[0], *titlesStartAt)
		if err != nil {
			serviceutil.Fatal("title batch failed", err)
		}
		renderSummary(
			table.Row{"titles processed", processed},
			table.Row{"seconds", int(time.Since(t1).Seconds())},
		)
	},
}
