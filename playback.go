package playalong

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/playalong-go/internal/timeline"
)

// TogglePlayback moves the state machine on: Stopped starts (through the
// count-in when configured), CountIn is cancelled back to Stopped, Playing
// pauses and Paused resumes.
func (s *Session) TogglePlayback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.loaded()
	if err != nil {
		return err
	}
	if s.calibrating {
		return ErrBusy
	}
	switch s.state {
	case Stopped:
		if s.cfg.CountInBeats > 0 {
			s.startCountIn(sg)
			return nil
		}
		return s.startPlaying(sg)
	case CountIn:
		s.stopLocked()
		return nil
	case Playing:
		s.pauseLocked(sg)
		return nil
	case Paused:
		return s.resumeLocked(sg)
	}
	return nil
}

// Stop rewinds to the beginning from any state. No cursor step happens after
// it returns.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.loaded(); err != nil {
		return err
	}
	return s.stopLocked()
}

func (s *Session) setState(st PlaybackState) {
	if s.state == st {
		return
	}
	s.state = st
	s.dispatch(Event{Kind: EventStateChanged, State: st})
}

func (s *Session) startCountIn(sg *song) {
	beats := s.cfg.CountInBeats
	beat := time.Duration(float64(time.Minute) / sg.tempo.Current())
	var start time.Time
	played := 0
	sg.cursor.Start()
	s.setState(CountIn)
	sg.countInTask = s.loop.Every(func(now time.Time) bool {
		if start.IsZero() {
			start = now
		}
		elapsed := now.Sub(start)
		for played < beats && elapsed >= time.Duration(played)*beat {
			played++
			s.dispatch(Event{Kind: EventCountInBeat, Beat: played})
		}
		if elapsed < time.Duration(beats)*beat {
			return true
		}
		sg.countInTask = nil
		if err := s.startPlaying(sg); err != nil {
			s.dispatch(Event{Kind: EventWarning, Err: err})
		}
		return false
	})
}

// startPlaying starts the clock, the tracks and the cursor from the top.
func (s *Session) startPlaying(sg *song) error {
	if s.state != CountIn {
		sg.cursor.Start()
	}
	sg.clock.Start(0)
	err := sg.tracks.Start()
	sg.playTask = s.loop.Every(s.playTick)
	s.setState(Playing)
	s.log.WithFields(logrus.Fields{"song": sg.meta.ID, "bpm": sg.tempo.Current(), "offset": sg.offset}).Info("playback started")
	return err
}

func (s *Session) pauseLocked(sg *song) {
	sg.playTask.Cancel()
	sg.playTask = nil
	sg.clock.Pause()
	sg.tracks.Pause()
	sg.cursor.Pause()
	s.setState(Paused)
}

// resumeLocked continues from the paused tick. The tracks are reseated on
// the transport position so any drift while paused is dropped.
func (s *Session) resumeLocked(sg *song) error {
	sg.clock.Start(sg.clock.Ticks())
	err := sg.tracks.Start()
	sg.cursor.Resume()
	sg.playTask = s.loop.Every(s.playTick)
	s.setState(Playing)
	return err
}

func (s *Session) stopLocked() error {
	sg := s.song
	if sg == nil {
		return nil
	}
	sg.playTask.Cancel()
	sg.playTask = nil
	sg.countInTask.Cancel()
	sg.countInTask = nil
	sg.clock.Stop()
	err := sg.tracks.Stop()
	sg.cursor.Stop()
	if sg.stale {
		s.rebuildLocked(sg)
	}
	s.setState(Stopped)
	return err
}

// playTick is the per-refresh playback task.
func (s *Session) playTick(time.Time) bool {
	sg := s.song
	if sg == nil || s.state != Playing {
		return false
	}
	sg.cursor.Poll(sg.clock.Ticks())
	if sg.tracks.Ended() {
		s.dispatch(Event{Kind: EventEndReached, Song: sg.meta.ID})
		return false
	}
	return true
}

func (s *Session) onCursorMove(index int, p timeline.SyncPoint) {
	s.dispatch(Event{Kind: EventCursorMoved, CursorIndex: index, Timestamp: p.Timestamp, Ticks: p.Ticks})
}

func (s *Session) onEndReached(Event) {
	s.log.WithField("song", s.song.meta.ID).Info("end of audio reached")
	s.stopLocked()
}

func (s *Session) onCountInBeat(ev Event) {
	if s.metronome != nil {
		s.metronome.Click(ev.Beat == 1)
	}
}
