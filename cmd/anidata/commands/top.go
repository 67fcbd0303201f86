package commands

import (
	"os"
	"path/filepath"
	"time"

	"anidata-backend/lib/sink"
	"anidata-backend/lib/util/serviceutil"
	"anidata-backend/services/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(topCmd)
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Walks the ranking until the first unscored entry and writes top_anime.csv.",
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
		count, err := svc.ScrapeTop(cmd.Context())
		if err != nil {
			serviceutil.Fatal("ranking walk failed", err)
		}

		renderTopPreview(filepath.Join(cfg.OutputDir, catalog.TopFile), count, time.Since(t1))
	},
}

// renderTopPreview prints the head of the freshly written ranking table.
func renderTopPreview(path string, count int, elapsed time.Duration) {
	ranks, err := sink.ReadColumn(path, "Rank")
	if err != nil {
		serviceutil.Fatal("failed to read ranking file back", err)
	}
	titles, err := sink.ReadColumn(path, "Title")
	if err != nil {
		serviceutil.Fatal("failed to read ranking file back", err)
	}
	ratings, err := sink.ReadColumn(path, "Rating")
	if err != nil {
		serviceutil.Fatal("failed to read ranking file back", err)
	}

	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.AppendHeader(table.Row{"Rank", "Title", "Rating"})
	for i := 0; i < len(ranks) && i < 10; i++ {
		w.AppendRow(table.Row{ranks[i], titles[i], ratings[i]})
	}
	w.AppendFooter(table.Row{"", "records", count})
	w.AppendFooter(table.Row{"", "seconds", int(elapsed.Seconds())})
	w.Render()
}
