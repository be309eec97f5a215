package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Check is one row of the doctor report.
type Check struct {
	Name     string
	Path     string // empty when not found
	Required bool
	Note     string
}

// DoctorTable lays the checks out as aligned columns.
func DoctorTable(st Styles, checks []Check) string {
	width := 0
	for _, c := range checks {
		if w := lipgloss.Width(c.Name); w > width {
			width = w
		}
	}
	label := st.Label.Width(width + 2)

	var b strings.Builder
	b.WriteString(st.Header.Render("Dependencies"))
	b.WriteString("\n")
	for _, c := range checks {
		var status string
		switch {
		case c.Path != "":
			status = st.Success.Render("✓ " + c.Path)
		case c.Required:
			status = st.Error.Render("✗ not found")
		default:
			status = st.Warning.Render("- not found")
		}
		line := label.Render(c.Name) + status
		if c.Note != "" {
			line += " " + st.Faint.Render(c.Note)
		}
		b.WriteString(st.Box.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
