package ui

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"

	"firstboot/internal/model"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewTitle())
	b.WriteString("\n\n")
	b.WriteString(m.viewProgress())
	b.WriteString("\n\n")
	b.WriteString(m.styles.Status.Render(m.status))
	if m.verbose && m.lastLog != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Faint.Render(truncate(m.lastLog, max(m.width-8, 40))))
	}
	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Error.Render(m.err.Error()))
	}
	return m.styles.Box.Render(b.String())
}

func (m Model) viewTitle() string {
	switch m.state {
	case model.StateAwaitingClock:
		return m.styles.Title.Render("Waiting for valid time")
	case model.StateAwaitingHandoff:
		return m.styles.Success.Render("Installed")
	case model.StateFailed:
		return m.styles.Error.Render("Installation failed")
	default:
		return m.styles.Title.Render("Installing...")
	}
}

func (m Model) viewProgress() string {
	if m.state == model.StateAwaitingClock {
		return m.styles.Spinner.Render(m.spinner.View()) + " " + m.styles.Faint.Render("checking clock")
	}
	line := fmt.Sprintf("%s  %s", m.bar.ViewAs(float64(m.percent)/100.0), m.styles.Percent.Render(fmt.Sprintf("%d%%", m.percent)))
	if m.result != nil && m.result.Err == nil && m.result.InstalledSize > 0 {
		line += "  " + m.styles.Faint.Render(units.HumanSize(float64(m.result.InstalledSize)))
	}
	return line
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
