package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// renderSummary prints the end-of-run stat block every subcommand emits.
func renderSummary(rows ...table.Row) {
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	for _, row := range rows {
		w.AppendRow(row)
	}
	w.Render()
}
