package cli

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

func newBrowser(t *testing.T) NodeBrowserModel {
	t.Helper()
	c := New(&bytes.Buffer{}, log.InfoLevel)
	g, _, err := c.loadTopology(t.Context(), writeTopology(t))
	if err != nil {
		t.Fatal(err)
	}
	return NewNodeBrowserModel(g)
}

func press(m NodeBrowserModel, msg tea.KeyMsg) (NodeBrowserModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(NodeBrowserModel), cmd
}

func TestNodeBrowserNavigation(t *testing.T) {
	m := newBrowser(t)
	if len(m.Graph.Nodes) != 3 {
		t.Fatalf("browser has %d nodes, want 3", len(m.Graph.Nodes))
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.Cursor != 0 {
		t.Errorf("cursor moved above first row: %d", m.Cursor)
	}
	for range 5 {
		m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.Cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.Cursor)
	}
}

func TestNodeBrowserDetail(t *testing.T) {
	m := newBrowser(t)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown}) // app

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Detail {
		t.Fatal("enter should open the detail view")
	}
	view := m.View()
	for _, want := range []string{"Outgoing", "To Node 3: 2 connections", "From Node 1: 1 connection"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q:\n%s", want, view)
		}
	}

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Detail || cmd != nil {
		t.Error("esc should close the detail view without quitting")
	}
	if _, cmd = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("q should quit")
	}
}

func TestDegrees(t *testing.T) {
	m := newBrowser(t)
	byName := map[string]int{}
	for _, n := range m.Graph.Nodes {
		byName[n.Name] = m.Degree.out[n.ID]*10 + m.Degree.in[n.ID]
	}
	want := map[string]int{"gateway": 10, "app": 21, "db": 2}
	for name, w := range want {
		if byName[name] != w {
			t.Errorf("%s out*10+in = %d, want %d", name, byName[name], w)
		}
	}
}
