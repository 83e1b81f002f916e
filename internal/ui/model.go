package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/history"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// Engine is the slice of the monitor coordinator the panel drives.
type Engine interface {
	Snapshot() models.EngineSnapshot
	UseDefaultGateway() error
	UseCustomHost(host string) error
}

type statusMsg struct {
	status models.Status
	ok     bool
}

type redrawMsg struct{}

type targetResultMsg struct {
	err error
}

// Model renders the live connection panel: the display code, the tooltip
// detail, and the recent probe strip.
type Model struct {
	engine   Engine
	statuses <-chan models.Status
	ring     *history.Ring

	status models.Status
	snap   models.EngineSnapshot

	input   textinput.Model
	editing bool

	spin spinner.Model

	lastErr  error
	width    int
	quitting bool
}

func NewModel(engine Engine, statuses <-chan models.Status, ring *history.Ring) *Model {
	input := textinput.New()
	input.Placeholder = "host or address"
	input.CharLimit = 253
	input.Width = 40

	spin := spinner.New()
	spin.Spinner = spinner.Line

	snap := engine.Snapshot()
	return &Model{
		engine:   engine,
		statuses: statuses,
		ring:     ring,
		status:   snap.Status,
		snap:     snap,
		input:    input,
		spin:     spin,
		width:    80,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForStatus(m.statuses),
		m.spin.Tick,
		redrawTick(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		// The spinner only runs while the first probe is still outstanding.
		if m.snap.HasOutcome {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case redrawMsg:
		m.snap = m.engine.Snapshot()
		return m, redrawTick()

	case statusMsg:
		if !msg.ok {
			m.quitting = true
			return m, tea.Quit
		}
		m.status = msg.status
		m.snap = m.engine.Snapshot()
		return m, waitForStatus(m.statuses)

	case targetResultMsg:
		m.lastErr = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.editing {
		switch key {
		case "esc":
			m.editing = false
			m.input.Blur()
			m.input.SetValue("")
			return m, nil
		case "enter":
			host := m.input.Value()
			m.editing = false
			m.input.Blur()
			m.input.SetValue("")
			return m, applyCustom(m.engine, host)
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "g":
		m.lastErr = nil
		return m, applyGateway(m.engine)
	case "t":
		m.lastErr = nil
		m.editing = true
		return m, m.input.Focus()
	}
	return m, nil
}

func waitForStatus(statuses <-chan models.Status) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-statuses
		return statusMsg{status: status, ok: ok}
	}
}

func redrawTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return redrawMsg{} })
}

func applyGateway(engine Engine) tea.Cmd {
	return func() tea.Msg { return targetResultMsg{err: engine.UseDefaultGateway()} }
}

func applyCustom(engine Engine, host string) tea.Cmd {
	return func() tea.Msg { return targetResultMsg{err: engine.UseCustomHost(host)} }
}
