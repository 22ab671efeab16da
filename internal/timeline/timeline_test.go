package timeline

import "testing"

type fakePosition struct {
	ts      float64
	measure Measure
	parts   []int
}

type fakeScore struct {
	parts     []Part
	visible   map[int]bool
	positions []fakePosition
}

type fakeIterator struct {
	s   *fakeScore
	idx int
}

func (it *fakeIterator) EndReached() bool   { return it.idx >= len(it.s.positions) }
func (it *fakeIterator) Timestamp() float64 { return it.s.positions[it.idx].ts }
func (it *fakeIterator) Measure() Measure   { return it.s.positions[it.idx].measure }
func (it *fakeIterator) Next()              { it.idx++ }
func (it *fakeIterator) VoiceEntries() []VoiceEntry {
	var out []VoiceEntry
	for _, p := range it.s.positions[it.idx].parts {
		out = append(out, VoiceEntry{Part: p})
	}
	return out
}

type nopCursor struct{}

func (nopCursor) Show()  {}
func (nopCursor) Hide()  {}
func (nopCursor) Reset() {}
func (nopCursor) Next()  {}

func (s *fakeScore) Title() string                 { return "fake" }
func (s *fakeScore) Tempo() float64                { return 0 }
func (s *fakeScore) Parts() []Part                 { return s.parts }
func (s *fakeScore) PartVisible(id int) bool       { return s.visible[id] }
func (s *fakeScore) SetPartVisible(id int, v bool) { s.visible[id] = v }
func (s *fakeScore) Iterator() Iterator            { return &fakeIterator{s: s} }
func (s *fakeScore) Cursor() Cursor                { return nopCursor{} }

var fourFour = TimeSignature{Numerator: 4, Denominator: 4}

// quartet builds an SATB score where the alto has solo notes at 0.25 and 1.5.
func quartet() *fakeScore {
	m := func(n int) Measure { return Measure{Number: n, Start: float64(n), TimeSignature: fourFour} }
	s := &fakeScore{
		parts:   []Part{{ID: 0, Name: "Soprano"}, {ID: 1, Name: "Alto"}, {ID: 2, Name: "Tenor"}, {ID: 3, Name: "Bari"}},
		visible: map[int]bool{0: true, 1: true, 2: true, 3: true},
		positions: []fakePosition{
			{ts: 0, measure: m(0), parts: []int{0, 1, 2, 3}},
			{ts: 0.25, measure: m(0), parts: []int{1}},
			{ts: 0.5, measure: m(0), parts: []int{0, 1}},
			{ts: 1, measure: m(1), parts: []int{2, 3}},
			{ts: 1.5, measure: m(1), parts: []int{1}},
			{ts: 1.75, measure: m(1), parts: []int{3}},
		},
	}
	return s
}

func TestTicksFormula(t *testing.T) {
	got := Ticks(2.0, TimeSignature{Numerator: 3, Denominator: 4}, 480)
	if got != 2880 {
		t.Fatalf("ticks = %d, want 2880", got)
	}
	if got := Ticks(1.5, TimeSignature{Numerator: 6, Denominator: 8}, 480); got != 2160 {
		t.Fatalf("6/8 ticks = %d, want 2160", got)
	}
}

func TestBuildStrictlyIncreasing(t *testing.T) {
	s := quartet()
	// duplicate timestamp emitted by the iterator must collapse
	s.positions = append(s.positions[:2], append([]fakePosition{{ts: 0.25, measure: s.positions[1].measure, parts: []int{0}}}, s.positions[2:]...)...)
	points := Build(s, 480)
	if len(points) != 6 {
		t.Fatalf("len(points) = %d, want 6", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp <= points[i-1].Timestamp {
			t.Fatalf("timestamps not increasing at %d: %v", i, points)
		}
		if points[i].Ticks < points[i-1].Ticks {
			t.Fatalf("ticks decreasing at %d: %v", i, points)
		}
	}
	if points[3].Ticks != 1920 {
		t.Fatalf("measure 1 ticks = %d, want 1920", points[3].Ticks)
	}
}

func TestBuildHidesMutedPart(t *testing.T) {
	s := quartet()
	before := Build(s, 480)
	s.SetPartVisible(1, false)
	after := Build(s, 480)

	want := []float64{0, 0.5, 1, 1.75}
	if len(after) != len(want) {
		t.Fatalf("len(after) = %d, want %d (%v)", len(after), len(want), after)
	}
	for i, ts := range want {
		if after[i].Timestamp != ts {
			t.Fatalf("after[%d].Timestamp = %v, want %v", i, after[i].Timestamp, ts)
		}
	}
	// shared points keep their ticks
	shared := map[float64]int64{}
	for _, p := range before {
		shared[p.Timestamp] = p.Ticks
	}
	for _, p := range after {
		if shared[p.Timestamp] != p.Ticks {
			t.Fatalf("ticks at %v changed: %d -> %d", p.Timestamp, shared[p.Timestamp], p.Ticks)
		}
	}
	if len(before) != 6 {
		t.Fatalf("previous result mutated: len = %d", len(before))
	}
}

func TestBuildNoVisibleParts(t *testing.T) {
	s := quartet()
	for _, p := range s.parts {
		s.SetPartVisible(p.ID, false)
	}
	points := Build(s, 480)
	if points == nil || len(points) != 0 {
		t.Fatalf("points = %v, want empty", points)
	}
	if got := Build(nil, 480); len(got) != 0 {
		t.Fatalf("nil score produced %v", got)
	}
}

func TestBuildMeterChangeStaysContinuous(t *testing.T) {
	threeFour := TimeSignature{Numerator: 3, Denominator: 4}
	s := &fakeScore{
		parts:   []Part{{ID: 0, Name: "Solo"}},
		visible: map[int]bool{0: true},
		positions: []fakePosition{
			{ts: 0, measure: Measure{Number: 0, Start: 0, TimeSignature: fourFour}, parts: []int{0}},
			{ts: 1, measure: Measure{Number: 1, Start: 1, TimeSignature: threeFour}, parts: []int{0}},
			{ts: 1.5, measure: Measure{Number: 1, Start: 1, TimeSignature: threeFour}, parts: []int{0}},
			{ts: 2, measure: Measure{Number: 2, Start: 2, TimeSignature: threeFour}, parts: []int{0}},
		},
	}
	points := Build(s, 480)
	want := []int64{0, 1920, 1920 + 720, 1920 + 1440}
	for i, w := range want {
		if points[i].Ticks != w {
			t.Fatalf("points[%d].Ticks = %d, want %d", i, points[i].Ticks, w)
		}
	}
}

func TestBuildMeterChangeOverRestMeasure(t *testing.T) {
	threeFour := TimeSignature{Numerator: 3, Denominator: 4}
	// 4/4 for one measure, then 3/4 from timestamp 1 with measure 2 resting
	s := &fakeScore{
		parts:   []Part{{ID: 0, Name: "Solo"}},
		visible: map[int]bool{0: true},
		positions: []fakePosition{
			{ts: 0, measure: Measure{Number: 1, Start: 0, TimeSignature: fourFour}, parts: []int{0}},
			{ts: 2, measure: Measure{Number: 3, Start: 2, MeterStart: 1, TimeSignature: threeFour}, parts: []int{0}},
			{ts: 2.5, measure: Measure{Number: 3, Start: 2, MeterStart: 1, TimeSignature: threeFour}, parts: []int{0}},
		},
	}
	points := Build(s, 480)
	// seven quarters in, then half of a 3/4 measure more
	want := []int64{0, 3360, 4080}
	if len(points) != len(want) {
		t.Fatalf("points = %v", points)
	}
	for i, ticks := range want {
		if points[i].Ticks != ticks {
			t.Fatalf("points[%d].Ticks = %d, want %d (%v)", i, points[i].Ticks, ticks, points)
		}
	}
}
