package report

import (
	"fmt"
	"io"

	"codeberg.org/mutker/threadstone/internal/archive"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const digestPrefix = 12

// History writes archived runs as a table, newest first.
func History(w io.Writer, entries []archive.Entry) error {
	if len(entries) == 0 {
		_, err := io.WriteString(w, "no archived runs\n")
		return err
	}

	r := lipgloss.NewRenderer(w)
	border := r.NewStyle().Foreground(lipgloss.Color("240"))

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rec := e.Record
		digest := e.Digest
		if len(digest) > digestPrefix {
			digest = digest[:digestPrefix]
		}
		signed := "no"
		if rec.Signed() {
			signed = "yes"
		}

		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID),
			digest,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			string(rec.Workload),
			fmt.Sprintf("%d", rec.Threads),
			fmt.Sprintf("%d", rec.Samples),
			formatValue(rec.Average),
			spread(rec),
			signed,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(border).
		Headers("ID", "DIGEST", "CREATED", "WORKLOAD", "THREADS", "SAMPLES", "AVERAGE", "SPREAD", "SIGNED").
		Rows(rows...)

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
