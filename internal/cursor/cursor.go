// Package cursor moves the score cursor in step with the transport.
package cursor

import (
	"errors"

	"github.com/cbegin/playalong-go/internal/timeline"
)

var ErrRunning = errors.New("cursor: sync points cannot change while running")

// MoveFunc is called after every cursor step with the new index.
type MoveFunc func(index int, point timeline.SyncPoint)

// Scheduler maps transport ticks onto cursor steps. Index is the sync point
// the cursor currently rests on.
type Scheduler struct {
	cursor timeline.Cursor
	points []timeline.SyncPoint
	onMove MoveFunc

	index   int
	active  bool
	paused  bool
	visible bool
}

func New(cursor timeline.Cursor, points []timeline.SyncPoint, onMove MoveFunc) *Scheduler {
	return &Scheduler{cursor: cursor, points: points, onMove: onMove}
}

// Start resets the cursor to the first sync point and shows it.
func (s *Scheduler) Start() {
	s.index = 0
	s.cursor.Reset()
	s.cursor.Show()
	s.visible = true
	s.active = true
	s.paused = false
}

// Pause freezes the cursor where it is; Resume continues from there.
func (s *Scheduler) Pause() {
	if s.active {
		s.paused = true
	}
}

func (s *Scheduler) Resume() {
	if s.active {
		s.paused = false
	}
}

// Poll advances the cursor past every sync point that is due at ticks.
func (s *Scheduler) Poll(ticks int64) int {
	if !s.active || s.paused {
		return 0
	}
	steps := 0
	for s.index+1 < len(s.points) && s.points[s.index+1].Ticks <= ticks {
		s.index++
		s.cursor.Next()
		steps++
		if s.onMove != nil {
			s.onMove(s.index, s.points[s.index])
		}
	}
	return steps
}

// Stop rewinds and hides the cursor.
func (s *Scheduler) Stop() {
	s.active = false
	s.paused = false
	s.index = 0
	s.cursor.Reset()
	s.cursor.Hide()
	s.visible = false
}

// SetPoints replaces the sync points. Only legal while stopped.
func (s *Scheduler) SetPoints(points []timeline.SyncPoint) error {
	if s.active {
		return ErrRunning
	}
	s.points = points
	s.index = 0
	return nil
}

func (s *Scheduler) Points() []timeline.SyncPoint { return s.points }
func (s *Scheduler) Index() int                   { return s.index }
func (s *Scheduler) Visible() bool                { return s.visible }
func (s *Scheduler) Active() bool                 { return s.active }

// Exhausted reports that the cursor rests on the last sync point.
func (s *Scheduler) Exhausted() bool {
	return s.index+1 >= len(s.points)
}
