// Package midiscore reads a Standard MIDI File as a score: every track with
// notes becomes a part and every distinct note onset a cursor position.
package midiscore

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/playalong-go/internal/timeline"
)

var (
	ErrNoNotes    = errors.New("midiscore: file has no notes")
	ErrTimeFormat = errors.New("midiscore: SMPTE time format is not supported")
)

type meterChange struct {
	tick uint64
	sig  timeline.TimeSignature
	// measures elapsed before tick
	measures float64
}

type position struct {
	tick      uint64
	timestamp float64
	measure   timeline.Measure
	parts     []int
}

// Score is a loaded MIDI score. It is not safe for concurrent use.
type Score struct {
	title      string
	tempo      float64
	resolution uint64
	parts      []timeline.Part
	visible    []bool
	meters     []meterChange
	positions  []position
	cursor     *Cursor
}

// Load reads the MIDI file at path. The file name is used as the title when
// the file carries none.
func Load(path string) (*Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := Read(f, base)
	if err != nil {
		return nil, fmt.Errorf("midiscore: %s: %w", path, err)
	}
	return s, nil
}

// Read parses an SMF stream.
func Read(r io.Reader, fallbackTitle string) (*Score, error) {
	file, err := smf.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	return FromSMF(file, fallbackTitle)
}

// FromSMF builds a score from a parsed file.
func FromSMF(file *smf.SMF, fallbackTitle string) (*Score, error) {
	mt, ok := file.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrTimeFormat
	}
	s := &Score{title: fallbackTitle, resolution: uint64(mt.Resolution())}
	if tc := file.TempoChanges(); len(tc) > 0 {
		s.tempo = tc[0].BPM
	}

	onsets := map[uint64]map[int]bool{}
	var meters []meterChange
	titled := false
	for _, track := range file.Tracks {
		var abs uint64
		var name string
		hasNote := false
		partID := len(s.parts)
		for _, ev := range track {
			abs += uint64(ev.Delta)
			msg := ev.Message
			var num, den, ch, key, vel uint8
			var text string
			switch {
			case msg.GetMetaMeter(&num, &den):
				meters = append(meters, meterChange{tick: abs, sig: timeline.TimeSignature{Numerator: int(num), Denominator: int(den)}})
			case msg.GetMetaTrackName(&text):
				if name == "" {
					name = strings.TrimSpace(text)
				}
			case msg.GetNoteOn(&ch, &key, &vel) && vel > 0:
				hasNote = true
				if onsets[abs] == nil {
					onsets[abs] = map[int]bool{}
				}
				onsets[abs][partID] = true
			}
		}
		if !hasNote {
			if name != "" && !titled {
				s.title = name
				titled = true
			}
			continue
		}
		if name == "" {
			name = fmt.Sprintf("Part %d", partID+1)
		}
		s.parts = append(s.parts, timeline.Part{ID: partID, Name: name})
		s.visible = append(s.visible, true)
	}
	if len(s.parts) == 0 {
		return nil, ErrNoNotes
	}
	s.meters = buildMeters(meters, s.resolution)

	ticks := make([]uint64, 0, len(onsets))
	for t := range onsets {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	for _, t := range ticks {
		parts := make([]int, 0, len(onsets[t]))
		for p := range onsets[t] {
			parts = append(parts, p)
		}
		sort.Ints(parts)
		ts, m := s.locate(t)
		s.positions = append(s.positions, position{tick: t, timestamp: ts, measure: m, parts: parts})
	}
	s.cursor = &Cursor{score: s}
	s.cursor.Reset()
	return s, nil
}

// buildMeters sorts the meter events, drops duplicates at the same tick and
// records how many measures precede each change.
func buildMeters(raw []meterChange, resolution uint64) []meterChange {
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].tick < raw[j].tick })
	out := []meterChange{{tick: 0, sig: timeline.TimeSignature{Numerator: 4, Denominator: 4}}}
	for _, m := range raw {
		last := &out[len(out)-1]
		if m.tick == last.tick {
			last.sig = m.sig
			continue
		}
		if m.sig == last.sig {
			continue
		}
		m.measures = last.measures + float64(m.tick-last.tick)/ticksPerMeasure(last.sig, resolution)
		out = append(out, m)
	}
	return out
}

func ticksPerMeasure(sig timeline.TimeSignature, resolution uint64) float64 {
	return sig.QuartersPerMeasure() * float64(resolution)
}

// locate converts a file tick into a measure timestamp and its measure.
func (s *Score) locate(tick uint64) (float64, timeline.Measure) {
	i := sort.Search(len(s.meters), func(i int) bool { return s.meters[i].tick > tick }) - 1
	seg := s.meters[i]
	into := float64(tick-seg.tick) / ticksPerMeasure(seg.sig, s.resolution)
	ts := seg.measures + into
	start := seg.measures + math.Floor(into)
	return ts, timeline.Measure{
		Number:        int(math.Floor(start)) + 1,
		Start:         start,
		MeterStart:    seg.measures,
		TimeSignature: seg.sig,
	}
}

func (s *Score) Title() string  { return s.title }
func (s *Score) Tempo() float64 { return s.tempo }

// Resolution returns the file's ticks per quarter note.
func (s *Score) Resolution() int { return int(s.resolution) }

func (s *Score) Parts() []timeline.Part {
	out := make([]timeline.Part, len(s.parts))
	copy(out, s.parts)
	return out
}

func (s *Score) PartVisible(id int) bool {
	return id >= 0 && id < len(s.visible) && s.visible[id]
}

func (s *Score) SetPartVisible(id int, visible bool) {
	if id >= 0 && id < len(s.visible) {
		s.visible[id] = visible
	}
}

func (s *Score) Iterator() timeline.Iterator {
	return &iterator{score: s}
}

func (s *Score) Cursor() timeline.Cursor {
	return s.cursor
}

// MeasureCount returns the number of measures spanned by the notes.
func (s *Score) MeasureCount() int {
	if len(s.positions) == 0 {
		return 0
	}
	return s.positions[len(s.positions)-1].measure.Number
}

func (s *Score) anyVisible(p position) bool {
	for _, id := range p.parts {
		if s.PartVisible(id) {
			return true
		}
	}
	return false
}

type iterator struct {
	score *Score
	idx   int
}

func (it *iterator) EndReached() bool   { return it.idx >= len(it.score.positions) }
func (it *iterator) Timestamp() float64 { return it.score.positions[it.idx].timestamp }
func (it *iterator) Measure() timeline.Measure {
	return it.score.positions[it.idx].measure
}
func (it *iterator) Next() { it.idx++ }

func (it *iterator) VoiceEntries() []timeline.VoiceEntry {
	parts := it.score.positions[it.idx].parts
	out := make([]timeline.VoiceEntry, len(parts))
	for i, p := range parts {
		out[i] = timeline.VoiceEntry{Part: p}
	}
	return out
}
