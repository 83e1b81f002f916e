package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/history"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

type fakeEngine struct {
	mu          sync.Mutex
	snap        models.EngineSnapshot
	customErr   error
	gatewayUses int
	customHosts []string
}

func (f *fakeEngine) Snapshot() models.EngineSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeEngine) UseDefaultGateway() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gatewayUses++
	return nil
}

func (f *fakeEngine) UseCustomHost(host string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.customErr != nil {
		return f.customErr
	}
	f.customHosts = append(f.customHosts, host)
	return nil
}

func testSnapshot() models.EngineSnapshot {
	return models.EngineSnapshot{
		Target:           models.GatewayTarget(),
		Gateway:          "192.168.1.1",
		NetworkAvailable: true,
		LastOutcome:      models.ProbeOutcome{Success: true, LatencyMs: 23},
		HasOutcome:       true,
		Status: models.Status{
			DisplayText:  "23",
			TooltipLines: []string{"target: gateway", "gateway: 192.168.1.1"},
		},
		GeneratedAt: time.Now().UTC(),
	}
}

func newTestModel() (*Model, *fakeEngine, chan models.Status) {
	engine := &fakeEngine{snap: testSnapshot()}
	statuses := make(chan models.Status, 4)
	ring := history.NewRing(0)
	return NewModel(engine, statuses, ring), engine, statuses
}

func update(t *testing.T, m *Model, msg tea.Msg) (*Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(*Model)
	if !ok {
		t.Fatalf("update returned %T", updated)
	}
	return model, cmd
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelRendersStatus(t *testing.T) {
	m, _, _ := newTestModel()

	view := m.View()
	if !strings.Contains(view, "23") {
		t.Fatalf("view missing display code:\n%s", view)
	}
	if !strings.Contains(view, "gateway: 192.168.1.1") {
		t.Fatalf("view missing tooltip line:\n%s", view)
	}
}

func TestModelAppliesStatusUpdates(t *testing.T) {
	m, engine, _ := newTestModel()
	engine.mu.Lock()
	engine.snap.Status.DisplayText = "45"
	engine.mu.Unlock()

	m, cmd := update(t, m, statusMsg{status: models.Status{DisplayText: "45"}, ok: true})
	if cmd == nil {
		t.Fatal("status update did not re-arm the stream wait")
	}
	if !strings.Contains(m.View(), "45") {
		t.Fatal("view missing updated code")
	}
}

func TestModelQuitsWhenStreamCloses(t *testing.T) {
	m, _, _ := newTestModel()

	m, cmd := update(t, m, statusMsg{ok: false})
	if !m.quitting {
		t.Fatal("model not quitting after stream close")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.View() != "" {
		t.Fatal("quitting view not empty")
	}
}

func TestModelGatewayKey(t *testing.T) {
	m, engine, _ := newTestModel()

	_, cmd := update(t, m, keyMsg("g"))
	if cmd == nil {
		t.Fatal("gateway key produced no command")
	}
	result, ok := cmd().(targetResultMsg)
	if !ok {
		t.Fatalf("command produced %T", cmd())
	}
	if result.err != nil {
		t.Fatalf("gateway switch error: %v", result.err)
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.gatewayUses != 1 {
		t.Fatalf("gateway uses = %d, want 1", engine.gatewayUses)
	}
}

func TestModelCustomTargetEntry(t *testing.T) {
	m, engine, _ := newTestModel()

	m, _ = update(t, m, keyMsg("t"))
	if !m.editing {
		t.Fatal("t key did not open the input")
	}

	m, _ = update(t, m, keyMsg("probe.example.net"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.editing {
		t.Fatal("enter did not close the input")
	}
	if cmd == nil {
		t.Fatal("enter produced no command")
	}
	if result := cmd().(targetResultMsg); result.err != nil {
		t.Fatalf("custom switch error: %v", result.err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.customHosts) != 1 || engine.customHosts[0] != "probe.example.net" {
		t.Fatalf("custom hosts = %v", engine.customHosts)
	}
}

func TestModelEscCancelsEntry(t *testing.T) {
	m, engine, _ := newTestModel()

	m, _ = update(t, m, keyMsg("t"))
	m, _ = update(t, m, keyMsg("typo.host"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.editing {
		t.Fatal("esc did not close the input")
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.customHosts) != 0 {
		t.Fatalf("cancelled entry still applied: %v", engine.customHosts)
	}
}

func TestModelSurfacesTargetErrors(t *testing.T) {
	m, engine, _ := newTestModel()
	engine.mu.Lock()
	engine.customErr = errors.New("custom host is empty")
	engine.mu.Unlock()

	m, _ = update(t, m, keyMsg("t"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())

	if !strings.Contains(m.View(), "custom host is empty") {
		t.Fatal("view missing target error")
	}

	m, _ = update(t, m, keyMsg("g"))
	if m.lastErr != nil {
		t.Fatal("new target attempt did not clear the error")
	}
}

func TestStripRendersFixedWidth(t *testing.T) {
	m, _, _ := newTestModel()
	now := time.Now().UTC()
	for i := 0; i < 30; i++ {
		m.ring.Add(models.ProbeSample{
			At:        now.Add(-time.Duration(30-i) * time.Second),
			Success:   i%5 != 0,
			LatencyMs: 20,
		})
	}

	strip := m.renderStrip()
	if got := lipgloss.Width(strip); got != stripCells {
		t.Fatalf("strip width = %d, want %d", got, stripCells)
	}
}
