package report

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"idsearch/internal/core"
)

// summaryColumns is the subset of participant columns shown in terminal output.
var summaryColumns = []string{"consortium_id", "center", "local_id", "local_pedigree", "local_individual", "affection", "diag", "withdrawn"}

// RenderParticipants prints a compact table of the projections to w.
func RenderParticipants(w io.Writer, rows []core.Projection) error {
	return render(w, summaryColumns, func(yield func([]string) bool) {
		for _, row := range rows {
			cells := make([]string, len(summaryColumns))
			for i, col := range summaryColumns {
				cells[i] = row[col]
			}
			if !yield(cells) {
				return
			}
		}
	})
}

// RenderResolutions prints one line per batch row with its outcome.
func RenderResolutions(w io.Writer, resolutions []core.Resolution) error {
	return render(w, []string{"row", "status", "consortium_id"}, func(yield func([]string) bool) {
		for _, res := range resolutions {
			status := "resolved"
			switch {
			case res.Unresolved():
				status = "unresolved"
			case res.Ambiguous():
				status = "ambiguous"
			}
			if !yield([]string{strconv.Itoa(res.Row + 1), status, res.String()}) {
				return
			}
		}
	})
}

func render(w io.Writer, headers []string, rows func(func([]string) bool)) error {
	table := tablewriter.NewTable(w)
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	table.Header(header...)
	for row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}
