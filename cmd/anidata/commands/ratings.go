package commands

import (
	"time"

	"anidata-backend/lib/util/serviceutil"
	"anidata-backend/services/userlist"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var ratingsStartAt *int

func init() {
	ratingsStartAt = ratingsCmd.Flags().Int("start-at", 0, "Zero-based offset into users.csv to resume from.")
	rootCmd.AddCommand(ratingsCmd)
}

var ratingsCmd = &cobra.Command{
	Use:   "ratings [--start-at <offset>]",
	Short: "Pulls the anime list of every user in users.csv into user_ratings.csv.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		cfg.requireClientId()

		svc, err := userlist.NewService(userlist.Options{
			SiteUrl:   cfg.SiteUrl,
			ApiUrl:    cfg.ApiUrl,
			ClientId:  cfg.ClientId,
			UserAgent: cfg.UserAgent,
			OutputDir: cfg.OutputDir,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize userlist service", err)
		}

		t1 := time.Now()
		scraped, err := svc.ScrapeRatings(cmd.Context(), *ratingsStartAt)
		if err != nil {
			serviceutil.Fatal("ratings pull failed", err)
		}
		renderSummary(
			table.Row{"users scraped", scraped},
			table.Row{"seconds", int(time.Since(t1).Seconds())},
		)
	},
}
