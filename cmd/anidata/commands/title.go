package commands

import (
	"strconv"

	"anidata-backend/lib/util/serviceutil"
	"anidata-backend/services/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(titleCmd)
}

var titleCmd = &cobra.Command{
	Use:   "title <id>",
	Short: "Scrapes one title's detail record and reviews into anime_info.csv and anime_reviews.csv.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			serviceutil.Fatal("id must be a number", err)
		}

		cfg := readConfig()
		svc, err := catalog.NewService(catalog.Options{
			SiteUrl:   cfg.SiteUrl,
			UserAgent: cfg.UserAgent,
			OutputDir: cfg.OutputDir,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize catalog service", err)
		}

		if err := svc.ScrapeTitle(cmd.Context(), id); err != nil {
			serviceutil.Fatal("title scrape failed", err)
		}
		renderSummary(table.Row{"title scraped", id})
	},
}
