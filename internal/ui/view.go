package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/history"
)

const (
	stripCells  = 60
	stripWindow = 5 * time.Minute
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("ping applet"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render("target: " + m.snap.Target.Label()))
	b.WriteString("\n\n")

	b.WriteString(m.renderCode())
	b.WriteString("\n\n")

	for _, line := range m.status.TooltipLines {
		b.WriteString(mutedStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderStrip())
	b.WriteString("\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n\n")

	if m.editing {
		b.WriteString("target: ")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if m.lastErr != nil {
		b.WriteString(errStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render("g gateway  t custom target  q quit"))

	return panelStyle.Render(b.String())
}

func (m *Model) renderCode() string {
	code := m.status.DisplayText
	if code == "" {
		code = "--"
	}
	padded := " " + code + " "

	switch {
	case m.status.UseDarkText:
		return codeTransitionStyle.Render(padded)
	case m.status.IsError:
		return codeErrStyle.Render(padded)
	case m.snap.HasOutcome:
		return codeOKStyle.Render(padded)
	default:
		return m.spin.View() + codeIdleStyle.Render(padded)
	}
}

func (m *Model) renderStrip() string {
	now := time.Now().UTC()
	points := history.BuildTimeline(m.ring.Recent(0), now.Add(-stripWindow), now, stripCells)

	var b strings.Builder
	for _, point := range points {
		cell := "▄"
		switch point.ClassName {
		case "state-success":
			b.WriteString(stripSuccessStyle.Render(cell))
		case "state-warning":
			b.WriteString(stripWarnStyle.Render(cell))
		case "state-error":
			b.WriteString(stripErrStyle.Render(cell))
		default:
			b.WriteString(stripMissingStyle.Render(cell))
		}
	}
	return b.String()
}

func (m *Model) renderSummary() string {
	summary := history.Summarize(m.ring.Recent(0))
	if summary.TotalProbes == 0 {
		return mutedStyle.Render("no probes yet")
	}
	return mutedStyle.Render(fmt.Sprintf(
		"uptime %.1f%%  avg %.1f ms  min %d  max %d  probes %d",
		summary.UptimePercent,
		summary.AvgLatencyMs,
		summary.MinLatencyMs,
		summary.MaxLatencyMs,
		summary.TotalProbes,
	))
}
