package playalong

import (
	"github.com/sirupsen/logrus"

	"github.com/cbegin/playalong-go/internal/calibrate"
)

type calibrationTarget interface {
	calibrate.Target
	calibrate.Analyser
}

// CalibrateOffset measures the silence at the start of the main track by
// playing it muted. It returns at once; the result arrives as an
// EventCalibrated or EventCalibrationTimedOut from a later Frame. Once a song
// is calibrated further calls report the stored result again without
// touching the current offset.
func (s *Session) CalibrateOffset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.loaded()
	if err != nil {
		return err
	}
	if s.state != Stopped || s.calibrating {
		return ErrBusy
	}
	tr, ok := sg.tracks.Track(MainTrack)
	if !ok {
		return ErrCalibrationUnsupported
	}
	target, ok := tr.Source.(calibrationTarget)
	if !ok {
		return ErrCalibrationUnsupported
	}
	s.calibrating = true
	started, err := sg.calibrator.Calibrate(target, target, sg.offset, func(r calibrate.Result) {
		kind := EventCalibrated
		if r.TimedOut {
			kind = EventCalibrationTimedOut
		}
		s.dispatch(Event{Kind: kind, Song: sg.meta.ID, Offset: r.Offset, Cached: r.Cached})
	})
	if err != nil {
		s.calibrating = false
		return err
	}
	if started {
		s.log.WithField("song", sg.meta.ID).Info("calibrating offset")
	}
	return nil
}

// ResetCalibration forgets the measured offset so CalibrateOffset measures
// again. The current offset is kept.
func (s *Session) ResetCalibration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.loaded()
	if err != nil {
		return err
	}
	if s.calibrating {
		return ErrBusy
	}
	sg.calibrator.Reset()
	sg.calibrated = false
	return nil
}

func (s *Session) onCalibrated(ev Event) {
	s.calibrating = false
	sg := s.song
	if sg == nil || ev.Cached {
		return
	}
	sg.calibrated = true
	if ev.Offset != sg.offset {
		if err := s.setOffsetLocked(sg, ev.Offset); err != nil {
			s.log.WithError(err).Warn("applying calibrated offset")
		}
	}
	s.log.WithFields(logrus.Fields{"song": sg.meta.ID, "offset": ev.Offset}).Info("offset calibrated")
}

func (s *Session) onCalibrationTimedOut(ev Event) {
	s.calibrating = false
	if s.song != nil {
		s.song.calibrated = true
	}
	s.log.WithField("offset", ev.Offset).Warn("calibration timed out, keeping offset")
}
