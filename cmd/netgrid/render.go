package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-netgrid/pkg/report"
)

// renderer prints an outcome as styled text. Styling is dropped when the
// writer is not a terminal.
type renderer struct {
	w io.Writer

	title   lipgloss.Style
	box     lipgloss.Style
	label   lipgloss.Style
	errors  lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
}

func newRenderer(w io.Writer) *renderer {
	r := lipgloss.NewRenderer(w)
	return &renderer{
		w: w,
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")),
		box: r.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#888888")).
			Padding(0, 1),
		label:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
		errors:  r.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("#FFFF00")).Bold(true),
		info:    r.NewStyle().Foreground(lipgloss.Color("#00FFFF")),
		success: r.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true),
	}
}

func (r *renderer) render(out *outcome) error {
	var sb strings.Builder

	sb.WriteString(r.title.Render("netgrid " + out.Network))
	sb.WriteString("\n")

	stats := []string{
		fmt.Sprintf("%s %d", r.label.Render("branches"), out.Branches),
		fmt.Sprintf("%s %d", r.label.Render("points"), out.Points),
	}
	if g := out.Generation; g != nil {
		stats = append(stats, fmt.Sprintf("%s %d regenerated, %d added, %d removed, %d kept",
			r.label.Render("generation"), g.Branches, g.Added, g.Removed, g.Kept))
	}
	sb.WriteString(r.box.Render(strings.Join(stats, "\n")))
	sb.WriteString("\n")

	r.section(&sb, out.Report, 0)

	if out.Report.IsEmpty() {
		sb.WriteString(r.success.Render("✓ grid is valid"))
	} else {
		sb.WriteString(fmt.Sprintf("%d errors, %d warnings, %d info",
			out.Report.ErrorCount(), out.Report.WarningCount(), out.Report.InfoCount()))
	}
	sb.WriteString("\n")

	_, err := io.WriteString(r.w, sb.String())
	return err
}

func (r *renderer) section(sb *strings.Builder, rep *report.Report, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent + r.title.Render(rep.Category) + " " + r.severity(rep.Severity()) + "\n")
	for _, issue := range rep.Issues {
		sb.WriteString(fmt.Sprintf("%s  %s %s\n", indent, r.severity(issue.Severity), issue.Message))
	}
	for _, sub := range rep.SubReports {
		r.section(sb, sub, depth+1)
	}
}

func (r *renderer) severity(s report.Severity) string {
	text := "[" + s.String() + "]"
	switch s {
	case report.Error:
		return r.errors.Render(text)
	case report.Warning:
		return r.warning.Render(text)
	case report.Info:
		return r.info.Render(text)
	default:
		return r.success.Render(text)
	}
}
