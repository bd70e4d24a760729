package main

import (
	"io"

	"ShopScraper/internal/app"
	"ShopScraper/internal/scraper"

	"github.com/jedib0t/go-pretty/v6/table"
)

func printReport(out io.Writer, report app.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Page", "Status", "Recorded", "Unchanged", "Failed", "Error"})

	for _, page := range report.Pages {
		errText := ""
		if page.Err != nil {
			errText = page.Err.Error()
		}
		t.AppendRow(table.Row{
			page.Page,
			page.Outcome,
			page.Count(scraper.Recorded),
			page.Count(scraper.SkippedUnchanged),
			page.Count(scraper.ExtractionFailed),
			errText,
		})
	}
	t.AppendFooter(table.Row{"", "Total", len(report.Products)})
	t.Render()
}
