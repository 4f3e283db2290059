package ui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title   lipgloss.Style
	Status  lipgloss.Style
	Percent lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Faint   lipgloss.Style
	Box     lipgloss.Style
	Spinner lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Title:   base.Bold(true).Foreground(lipgloss.Color("#FFFFFF")),
		Status:  base.Foreground(lipgloss.Color("#D1D5DB")),
		Percent: base.Bold(true).Foreground(lipgloss.Color("#FFFFFF")),
		Success: base.Foreground(lipgloss.Color("#22C55E")),
		Error:   base.Foreground(lipgloss.Color("#EF4444")),
		Faint:   base.Faint(true),
		Box:     base.Padding(1, 4),
		Spinner: base.Foreground(lipgloss.Color("#22D3EE")),
	}
}
