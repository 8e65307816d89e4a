// Package ui renders terminal output and prompts for nxsync.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(1, 2)
)

// Status colors a report value.
type Status int

const (
	StatusNone Status = iota
	StatusOK
	StatusWarn
	StatusFail
)

// Row is one labelled line of a report.
type Row struct {
	Label  string
	Value  string
	Status Status
}

// Report is a titled list of rows rendered in a frame.
type Report struct {
	Title  string
	Rows   []Row
	Footer string
}

// Add appends a row.
func (r *Report) Add(label, value string, status Status) {
	r.Rows = append(r.Rows, Row{Label: label, Value: value, Status: status})
}

// Render returns the framed report.
func (r Report) Render() string {
	width := 0
	for _, row := range r.Rows {
		if len(row.Label) > width {
			width = len(row.Label)
		}
	}

	lines := []string{titleStyle.Render(r.Title), ""}
	for _, row := range r.Rows {
		label := labelStyle.Render(fmt.Sprintf("%-*s", width, row.Label))
		lines = append(lines, fmt.Sprintf("%s  %s", label, styleFor(row.Status).Render(row.Value)))
	}
	if r.Footer != "" {
		lines = append(lines, "", dimStyle.Render(r.Footer))
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func styleFor(s Status) lipgloss.Style {
	switch s {
	case StatusOK:
		return successStyle
	case StatusWarn:
		return warningStyle
	case StatusFail:
		return errorStyle
	default:
		return lipgloss.NewStyle()
	}
}

// YesNo renders a boolean with a matching status. invert marks "yes" as the
// bad answer.
func YesNo(v bool, invert bool) (string, Status) {
	ok := v != invert
	status := StatusFail
	if ok {
		status = StatusOK
	}
	if v {
		return "yes", status
	}
	return "no", status
}

// RenderTable renders rows under headers with a normal border.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return dimStyle.Render("(no entries)")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(tableCellStyle)
	return t.Render()
}

// tableCellStyle styles a table cell. lipgloss passes the header as row 0.
func tableCellStyle(row, _ int) lipgloss.Style {
	if row == 0 {
		return labelStyle.Padding(0, 1)
	}
	return lipgloss.NewStyle().Padding(0, 1)
}

// Success, Warning and Failure style a one-line status message.
func Success(msg string) string { return successStyle.Render(msg) }
func Warning(msg string) string { return warningStyle.Render(msg) }
func Failure(msg string) string { return errorStyle.Render(msg) }
