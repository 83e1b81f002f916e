package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	codeIdleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	codeOKStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	codeErrStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	codeTransitionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	stripSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	stripWarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	stripErrStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	stripMissingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
