// Package report renders a human-readable summary of a result record.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"codeberg.org/mutker/threadstone/internal/harness"
	"codeberg.org/mutker/threadstone/internal/result"
	"codeberg.org/mutker/threadstone/internal/signing"
	"github.com/charmbracelet/lipgloss"
)

const labelWidth = 20

// Summary is everything shown for one record. Only Record is required.
type Summary struct {
	Record  result.Record
	Unit    string
	Status  signing.Status
	Host    *harness.Host
	Elapsed time.Duration
	Digest  string
	Source  string
}

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	muted   lipgloss.Style
	divider lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		label:   r.NewStyle().Foreground(lipgloss.Color("243")).Width(labelWidth),
		value:   r.NewStyle().Foreground(lipgloss.Color("252")),
		good:    r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		bad:     r.NewStyle().Foreground(lipgloss.Color("160")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("240")),
		divider: r.NewStyle().Foreground(lipgloss.Color("236")),
	}
}

// Render writes s to w. Colors are used only when w is a terminal.
func Render(w io.Writer, s Summary) error {
	st := newStyles(lipgloss.NewRenderer(w))
	rec := s.Record

	var sb strings.Builder
	row := func(label, value string, style lipgloss.Style) {
		sb.WriteString(st.label.Render(label))
		sb.WriteString(style.Render(value))
		sb.WriteString("\n")
	}

	title := "threadstone " + string(rec.Workload)
	if s.Source != "" {
		title += " (" + s.Source + ")"
	}
	sb.WriteString(st.title.Render(title) + "\n")
	sb.WriteString(st.divider.Render(strings.Repeat("─", labelWidth+24)) + "\n")

	unit := ""
	if s.Unit != "" {
		unit = " " + s.Unit
	}

	row("Threads", fmt.Sprintf("%d", rec.Threads), st.value)
	row("Samples", fmt.Sprintf("%d", rec.Samples), st.value)
	row("Iterations/sample", fmt.Sprintf("%d", rec.IterationsPerSample), st.value)
	row("Average", formatValue(rec.Average)+unit, st.value)
	row("Min", formatValue(rec.Min)+unit, st.value)
	row("Max", formatValue(rec.Max)+unit, st.value)
	row("Spread", spread(rec), st.value)

	switch s.Status {
	case signing.StatusValid:
		row("Signature", s.Status.String(), st.good)
	case signing.StatusInvalid:
		row("Signature", s.Status.String(), st.bad)
	default:
		row("Signature", s.Status.String(), st.muted)
	}

	if s.Elapsed > 0 {
		row("Elapsed", s.Elapsed.Round(time.Millisecond).String(), st.value)
	}
	if s.Digest != "" {
		row("Digest", s.Digest, st.muted)
	}
	if h := s.Host; h != nil {
		cpu := h.CPU
		if cpu == "" {
			cpu = h.GOARCH
		}
		row("CPU", cpu, st.value)
		row("Cores", fmt.Sprintf("%d logical, %d physical", h.LogicalCores, h.PhysicalCores), st.value)
		clk := h.ClockSource
		if h.ClockFactor != "" {
			clk += " (" + h.ClockFactor + ")"
		}
		row("Clock", clk, st.value)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// spread is (max-min) relative to the average.
func spread(rec result.Record) string {
	if rec.Average == 0 {
		return "n/a"
	}

	return fmt.Sprintf("%.2f%%", (rec.Max-rec.Min)/rec.Average*100)
}
