// Package ui renders the human-facing text around playback: the banner,
// notices, the doctor table, and the end-of-run summary. Nothing here
// writes to the frame output while playback is running.
package ui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Header   lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Faint    lipgloss.Style
	Box      lipgloss.Style
}

// DefaultStyles returns the color styles used on a terminal.
func DefaultStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Title:    base.Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Subtitle: base.Faint(true),
		Header:   base.Bold(true),
		Label:    base.Foreground(lipgloss.Color("#A3A3A3")),
		Value:    base.Foreground(lipgloss.Color("#D1D5DB")),
		Success:  base.Foreground(lipgloss.Color("#22C55E")),
		Error:    base.Foreground(lipgloss.Color("#EF4444")),
		Warning:  base.Foreground(lipgloss.Color("#F59E0B")),
		Faint:    base.Faint(true),
		Box:      base.Padding(0, 1),
	}
}

// PlainStyles renders everything unstyled, for pipes and log files.
func PlainStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Title: base, Subtitle: base, Header: base, Label: base, Value: base,
		Success: base, Error: base, Warning: base, Faint: base, Box: base,
	}
}

// StylesFor picks DefaultStyles for a terminal and PlainStyles otherwise.
func StylesFor(tty bool) Styles {
	if tty {
		return DefaultStyles()
	}
	return PlainStyles()
}
