package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	playalong "github.com/cbegin/playalong-go"
	"github.com/cbegin/playalong-go/internal/catalog"
)

func newModel(t *testing.T) Model {
	t.Helper()
	s, err := playalong.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	songs := []catalog.Song{{ID: "a", Name: "Amazing Grace"}, {ID: "b", Name: "Blue Bossa"}}
	return NewModel(s, songs, 60)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSongSelection(t *testing.T) {
	m := newModel(t)
	next, _ := m.Update(key("j"))
	m = next.(Model)
	next, _ = m.Update(key("j"))
	m = next.(Model)
	if m.selected != 1 {
		t.Fatalf("selected = %d, want 1", m.selected)
	}
	if !strings.Contains(m.View(), "> Blue Bossa") {
		t.Fatalf("view does not mark the selection:\n%s", m.View())
	}
	next, _ = m.Update(key("k"))
	if got := next.(Model).selected; got != 0 {
		t.Fatalf("selected = %d, want 0", got)
	}
}

func TestPlayerKeysWithoutSong(t *testing.T) {
	m := newModel(t).WithSong("b")
	if m.view != viewPlayer || m.selected != 1 {
		t.Fatalf("view = %v selected = %d", m.view, m.selected)
	}
	next, _ := m.Update(key(" "))
	if err := next.(Model).err; !errors.Is(err, playalong.ErrNoSong) {
		t.Fatalf("err = %v, want ErrNoSong", err)
	}
}

func TestEventLogIsBounded(t *testing.T) {
	m := newModel(t)
	for i := 0; i < logLines+3; i++ {
		m.record(playalong.Event{Kind: playalong.EventCountInBeat, Beat: i + 1})
	}
	m.record(playalong.Event{Kind: playalong.EventCursorMoved})
	if len(m.log) != logLines {
		t.Fatalf("len(log) = %d, want %d", len(m.log), logLines)
	}
	if last := m.log[len(m.log)-1]; last != "count-in 9" {
		t.Fatalf("last line = %q", last)
	}
}

func TestQuit(t *testing.T) {
	m := newModel(t)
	next, cmd := m.Update(key("q"))
	if cmd == nil || !next.(Model).quitting {
		t.Fatal("q should quit")
	}
	if next.(Model).View() != "" {
		t.Fatal("view after quit should be empty")
	}
}
