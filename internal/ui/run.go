package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the install screen while install runs and returns its error.
func Run(ctx context.Context, install InstallFunc, verbose bool) error {
	m := NewModel(ctx, install, verbose)
	prog := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	return outcome(prog.Run())
}

// outcome maps the program's exit to the install result. Once the install
// has reached the handoff, a signal or ctrl+c only cuts the delay short.
func outcome(final tea.Model, err error) error {
	fm, ok := final.(Model)
	if err != nil {
		if ok && errors.Is(err, tea.ErrProgramKilled) && fm.installed() {
			return nil
		}
		return fmt.Errorf("install screen: %w", err)
	}
	if !ok {
		return nil
	}
	if fm.Err() != nil {
		return fm.Err()
	}
	if !fm.Done() && !fm.installed() {
		return errors.New("install interrupted")
	}
	return nil
}
