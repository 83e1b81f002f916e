package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/history"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// Run drives the terminal panel until the user quits, the status stream
// closes, or the context is cancelled. Cancellation is a clean exit.
func Run(ctx context.Context, engine Engine, statuses <-chan models.Status, ring *history.Ring) error {
	m := NewModel(engine, statuses, ring)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled)) {
		return nil
	}
	return err
}
