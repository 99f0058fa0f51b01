package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/askiada/go-gatepipe/pkg/pipeline"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	successStyle = cellStyle.Foreground(lipgloss.Color("2"))
	failureStyle = cellStyle.Foreground(lipgloss.Color("1"))
)

const statusColumn = 2

func printReport(w io.Writer, report *pipeline.Report) {
	if !report.Started {
		fmt.Fprintln(w, "trigger not recognized, pipeline not started")

		return
	}

	rows := report.Rows()
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(pipeline.ReportHeader...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(rows) {
				switch model.Status(rows[row][col]) {
				case model.StatusSuccess:
					return successStyle
				case model.StatusFailure:
					return failureStyle
				}
			}

			return cellStyle
		})

	fmt.Fprintln(w, tbl.String())
	fmt.Fprintf(w, "run %s (%s): primary %s, fallback %s => %s\n",
		report.ID, report.Trigger.Kind, report.Primary.Status, report.Fallback.Status, report.Status)
	if report.FailureIsolated() {
		fmt.Fprintln(w, "primary failure disappears with the optional capabilities excluded")
	}
}
