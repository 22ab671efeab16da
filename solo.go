package playalong

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/playalong-go/internal/timeline"
)

// SetSoloInstrument makes the play-along track of name the only audible
// track, or restores the full mix when name is empty or MainTrack. With
// HidePartsOnSolo the instrument's part is taken out of the cursor path;
// while not stopped that change waits for the next Stop.
func (s *Session) SetSoloInstrument(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.loaded()
	if err != nil {
		return err
	}
	if s.calibrating {
		return ErrBusy
	}
	if name == MainTrack {
		name = ""
	}
	if name == sg.solo {
		return nil
	}
	if name != "" {
		if _, ok := sg.tracks.Track(name); !ok {
			err := fmt.Errorf("%w: %q", ErrInstrumentMappingMissing, name)
			s.dispatch(Event{Kind: EventWarning, Instrument: name, Err: err})
			return err
		}
	}
	if err := sg.tracks.SetAudible(name); err != nil {
		return err
	}
	sg.solo = name
	s.applyVisibility(sg)
	s.log.WithFields(logrus.Fields{"song": sg.meta.ID, "track": sg.tracks.Audible()}).Info("audible track changed")
	s.dispatch(Event{Kind: EventSoloChanged, Instrument: name})
	return nil
}

// ToggleSolo selects name, or goes back to the full mix when name is already
// selected.
func (s *Session) ToggleSolo(name string) error {
	s.mu.Lock()
	current := ""
	if s.song != nil {
		current = s.song.solo
	}
	s.mu.Unlock()
	if name == current {
		return s.SetSoloInstrument("")
	}
	return s.SetSoloInstrument(name)
}

// Solo returns the selected instrument, or "" for the full mix.
func (s *Session) Solo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.song == nil {
		return ""
	}
	return s.song.solo
}

// applyVisibility hides the soloed instrument's part. The score only
// changes together with the sync points, so while not stopped both wait for
// the next Stop.
func (s *Session) applyVisibility(sg *song) {
	if !s.cfg.HidePartsOnSolo || s.hiddenPart(sg) == sg.hidden {
		return
	}
	if s.state == Stopped {
		s.rebuildLocked(sg)
		return
	}
	sg.stale = true
}

func (s *Session) hiddenPart(sg *song) int {
	if !s.cfg.HidePartsOnSolo || sg.solo == "" {
		return -1
	}
	if id, ok := sg.parts[sg.solo]; ok {
		return id
	}
	return -1
}

// rebuildLocked applies the pending part visibility and replaces the sync
// points. Only called while stopped.
func (s *Session) rebuildLocked(sg *song) {
	if hide := s.hiddenPart(sg); hide != sg.hidden {
		if sg.hidden >= 0 {
			sg.score.SetPartVisible(sg.hidden, true)
		}
		if hide >= 0 {
			sg.score.SetPartVisible(hide, false)
		}
		sg.hidden = hide
	}
	points := timeline.Build(sg.score, s.cfg.PPQ)
	if err := sg.cursor.SetPoints(points); err != nil {
		s.log.WithError(err).Error("rebuilding sync points")
		return
	}
	sg.stale = false
	s.log.WithFields(logrus.Fields{"song": sg.meta.ID, "points": len(points), "hidden": sg.hidden}).Debug("sync points rebuilt")
}
