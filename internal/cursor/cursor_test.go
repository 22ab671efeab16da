package cursor

import (
	"errors"
	"testing"

	"github.com/cbegin/playalong-go/internal/timeline"
)

type countingCursor struct {
	shows, hides, resets, nexts int
}

func (c *countingCursor) Show()  { c.shows++ }
func (c *countingCursor) Hide()  { c.hides++ }
func (c *countingCursor) Reset() { c.resets++ }
func (c *countingCursor) Next()  { c.nexts++ }

func points(ticks ...int64) []timeline.SyncPoint {
	out := make([]timeline.SyncPoint, len(ticks))
	for i, t := range ticks {
		out[i] = timeline.SyncPoint{Timestamp: float64(i) * 0.25, Ticks: t}
	}
	return out
}

func TestPollAdvancesOnlyWhenDue(t *testing.T) {
	c := &countingCursor{}
	var moves []int
	s := New(c, points(0, 480, 960, 960, 1920), func(i int, _ timeline.SyncPoint) { moves = append(moves, i) })
	s.Start()
	if c.resets != 1 || c.shows != 1 || !s.Visible() {
		t.Fatalf("start did not reset and show: %+v", c)
	}

	cases := []struct {
		ticks int64
		index int
	}{
		{0, 0},
		{479, 0},
		{480, 1},
		{959, 1},
		{960, 3},
		{5000, 4},
		{9000, 4},
	}
	for _, tc := range cases {
		s.Poll(tc.ticks)
		if s.Index() != tc.index {
			t.Fatalf("Poll(%d): index = %d, want %d", tc.ticks, s.Index(), tc.index)
		}
	}
	if c.nexts != 4 || len(moves) != 4 {
		t.Fatalf("nexts = %d moves = %v, want 4", c.nexts, moves)
	}
	if !s.Exhausted() {
		t.Fatalf("expected exhausted")
	}
}

func TestPollIsMonotonic(t *testing.T) {
	c := &countingCursor{}
	s := New(c, points(0, 100, 200), nil)
	s.Start()
	s.Poll(250)
	s.Poll(50)
	if s.Index() != 2 {
		t.Fatalf("index went backwards: %d", s.Index())
	}
}

func TestPausedSchedulerDoesNotAdvance(t *testing.T) {
	c := &countingCursor{}
	s := New(c, points(0, 100, 200), nil)
	s.Poll(150)
	if s.Index() != 0 || c.nexts != 0 {
		t.Fatalf("advanced before start")
	}
	s.Start()
	s.Pause()
	s.Poll(150)
	if s.Index() != 0 {
		t.Fatalf("advanced while paused")
	}
	s.Resume()
	s.Poll(150)
	if s.Index() != 1 {
		t.Fatalf("index after resume = %d, want 1", s.Index())
	}
}

func TestStopRewindsAndHides(t *testing.T) {
	c := &countingCursor{}
	s := New(c, points(0, 100), nil)
	s.Start()
	s.Poll(100)
	s.Stop()
	if s.Index() != 0 || s.Visible() || c.hides != 1 || c.resets != 2 {
		t.Fatalf("stop state index=%d visible=%v cursor=%+v", s.Index(), s.Visible(), c)
	}
}

func TestSetPointsOnlyWhileStopped(t *testing.T) {
	s := New(&countingCursor{}, points(0, 100), nil)
	s.Start()
	if err := s.SetPoints(points(0)); !errors.Is(err, ErrRunning) {
		t.Fatalf("err = %v, want ErrRunning", err)
	}
	s.Stop()
	if err := s.SetPoints(points(0, 10, 20)); err != nil {
		t.Fatalf("SetPoints: %v", err)
	}
	if len(s.Points()) != 3 {
		t.Fatalf("points not replaced")
	}
}

func TestEmptyPoints(t *testing.T) {
	c := &countingCursor{}
	s := New(c, nil, nil)
	s.Start()
	if n := s.Poll(1 << 40); n != 0 || s.Index() != 0 || c.nexts != 0 {
		t.Fatalf("empty sequence advanced: n=%d index=%d", n, s.Index())
	}
}
