package commands

import (
	"anidata-backend/lib/util/serviceutil"
	"anidata-backend/services/userlist"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var usersTarget *int

func init() {
	usersTarget = usersCmd.Flags().Int("target", 100, "Total number of usernames to have on file.")
	rootCmd.AddCommand(usersCmd)
}

var usersCmd = &cobra.Command{
	Use:   "users [--target <count>]",
	Short: "Polls the community page until users.csv holds the target number of usernames.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
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

		added, err := svc.DiscoverUsers(cmd.Context(), *usersTarget)
		if err != nil {
			serviceutil.Fatal("user discovery failed", err)
		}
		renderSummary(
			table.Row{"target", *usersTarget},
			table.Row{"new usernames", added},
		)
	},
}
