// Package tui is the terminal front end: a song picker and a playback panel
// driving a playalong.Session.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	playalong "github.com/cbegin/playalong-go"
	"github.com/cbegin/playalong-go/internal/catalog"
)

const (
	tempoStep  = 2.0
	offsetStep = 10 * time.Millisecond
	logLines   = 6
)

var (
	accent = lipgloss.Color("#d33682")
	muted  = lipgloss.Color("#6c6c8a")
	warn   = lipgloss.Color("#cb4b16")

	headerStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(muted)
	errStyle    = lipgloss.NewStyle().Foreground(warn)
	selStyle    = lipgloss.NewStyle().Foreground(accent)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1)
)

type view int

const (
	viewSongs view = iota
	viewPlayer
)

type frameMsg time.Time

type eventMsg playalong.Event

type loadedMsg struct {
	song catalog.Song
	err  error
}

type Model struct {
	Session *playalong.Session
	Songs   []catalog.Song

	events   <-chan playalong.Event
	rate     int
	view     view
	selected int
	loading  bool
	status   string
	err      error
	log      []string
	quitting bool
}

// NewModel builds the model. refreshRate is the number of session frames per
// second.
func NewModel(s *playalong.Session, songs []catalog.Song, refreshRate int) Model {
	if refreshRate <= 0 {
		refreshRate = 60
	}
	return Model{
		Session: s,
		Songs:   songs,
		events:  s.Watch(),
		rate:    refreshRate,
	}
}

// WithSong opens the player view on an already loaded song.
func (m Model) WithSong(id string) Model {
	for i, s := range m.Songs {
		if s.ID == id {
			m.selected = i
		}
	}
	m.view = viewPlayer
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.rate), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func listenForEvents(ch <-chan playalong.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func loadSong(s *playalong.Session, song catalog.Song) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{song: song, err: s.LoadSong(song)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), listenForEvents(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			m.Session.Stop()
			return m, tea.Quit
		}
		if m.view == viewSongs {
			return m.updateSongs(msg)
		}
		m.err = m.updatePlayer(msg)
		if msg.String() == "b" || msg.String() == "esc" {
			m.view = viewSongs
		}

	case frameMsg:
		m.Session.Frame(time.Time(msg))
		return m, m.tick()

	case eventMsg:
		m.record(playalong.Event(msg))
		return m, listenForEvents(m.events)

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.view = viewPlayer
			m.status = "loaded " + msg.song.Name
		}
	}
	return m, nil
}

func (m Model) updateSongs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.Songs)-1 {
			m.selected++
		}
	case "enter":
		if m.loading || len(m.Songs) == 0 {
			return m, nil
		}
		m.loading = true
		m.err = nil
		song := m.Songs[m.selected]
		m.status = "loading " + song.Name + "..."
		return m, loadSong(m.Session, song)
	}
	return m, nil
}

func (m Model) updatePlayer(msg tea.KeyMsg) error {
	st := m.Session.Status()
	switch key := msg.String(); key {
	case " ":
		return m.Session.TogglePlayback()
	case "s", "b", "esc":
		return m.Session.Stop()
	case "+", "=":
		return m.Session.SetTempo(min(st.BPM+tempoStep, st.MaxBPM))
	case "-", "_":
		return m.Session.SetTempo(max(st.BPM-tempoStep, st.MinBPM))
	case "r":
		return m.Session.ResetTempo()
	case "0":
		return m.Session.SetSoloInstrument("")
	case "c":
		return m.Session.CalibrateOffset()
	case "C":
		return m.Session.ResetCalibration()
	case "[":
		return m.Session.SetOffset(max(st.Offset-offsetStep, 0))
	case "]":
		return m.Session.SetOffset(st.Offset + offsetStep)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(key[0] - '1')
		if idx < len(st.Instruments) {
			return m.Session.ToggleSolo(st.Instruments[idx])
		}
	}
	return nil
}

// record keeps the last few notable events for the log panel. Cursor moves
// are shown in the status line instead.
func (m *Model) record(ev playalong.Event) {
	var line string
	switch ev.Kind {
	case playalong.EventCursorMoved:
		return
	case playalong.EventStateChanged:
		line = "state " + ev.State.String()
	case playalong.EventTempoChanged:
		line = fmt.Sprintf("tempo %.1f bpm", ev.BPM)
	case playalong.EventSoloChanged:
		line = "solo " + orMix(ev.Instrument)
	case playalong.EventCountInBeat:
		line = fmt.Sprintf("count-in %d", ev.Beat)
	case playalong.EventCalibrated, playalong.EventOffsetChanged:
		line = fmt.Sprintf("%s %v", ev.Kind, ev.Offset.Round(time.Millisecond))
	case playalong.EventCalibrationTimedOut:
		line = "calibration timed out"
	case playalong.EventWarning:
		line = fmt.Sprintf("warning: %v", ev.Err)
	default:
		line = ev.Kind.String()
	}
	m.log = append(m.log, line)
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func orMix(name string) string {
	if name == "" {
		return "full mix"
	}
	return name
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("playalong"))
	b.WriteString("\n\n")
	if m.view == viewSongs {
		b.WriteString(m.songsView())
	} else {
		b.WriteString(m.playerView())
	}
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(dimStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) songsView() string {
	if len(m.Songs) == 0 {
		return dimStyle.Render("no songs found") + "\n"
	}
	var lines []string
	for i, s := range m.Songs {
		line := fmt.Sprintf("  %s", s.Name)
		if s.Composer != "" {
			line += dimStyle.Render("  " + s.Composer)
		}
		if i == m.selected {
			line = selStyle.Render("> " + s.Name)
		}
		lines = append(lines, line)
	}
	help := dimStyle.Render("j/k:select  enter:load  q:quit")
	return panelStyle.Render(strings.Join(lines, "\n")) + "\n" + help + "\n"
}

func (m Model) playerView() string {
	st := m.Session.Status()
	head := fmt.Sprintf("%s  %s", st.Title, headerStyle.Render(strings.ToUpper(st.State.String())))
	tempoLine := fmt.Sprintf("tempo %.1f bpm (written %.1f, %.0f-%.0f)", st.BPM, st.OriginalBPM, st.MinBPM, st.MaxBPM)
	pos := fmt.Sprintf("measure %d  point %d/%d  tick %d  audio %v", st.Measure, st.CursorIndex+1, st.SyncPoints, st.Ticks, st.Position.Round(10*time.Millisecond))
	offset := fmt.Sprintf("offset %v", st.Offset.Round(time.Millisecond))
	switch {
	case st.Calibrating:
		offset += dimStyle.Render("  calibrating...")
	case st.Calibrated:
		offset += dimStyle.Render("  calibrated")
	}

	parts := []string{"0 " + orMix("")}
	if st.Solo == "" {
		parts[0] = selStyle.Render(parts[0])
	}
	for i, name := range st.Instruments {
		p := fmt.Sprintf("%d %s", i+1, name)
		if name == st.Solo {
			p = selStyle.Render(p)
		}
		parts = append(parts, p)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		head, tempoLine, pos, offset, "",
		strings.Join(parts, "   "),
	)
	events := dimStyle.Render(strings.Join(m.log, "\n"))
	help := dimStyle.Render("space:play/pause  s:stop  +/-:tempo  r:reset  0-9:solo  c:calibrate  [/]:offset  b:songs  q:quit")
	return lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(body), " ", panelStyle.Render(events)) + "\n" + help + "\n"
}
