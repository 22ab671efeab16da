package playalong

import (
	"time"

	"github.com/sirupsen/logrus"
)

// EventKind tags an Event.
type EventKind int

const (
	EventSongLoaded EventKind = iota
	EventStateChanged
	EventCursorMoved
	EventTempoChanged
	EventSoloChanged
	EventCountInBeat
	EventOffsetChanged
	EventCalibrated
	EventCalibrationTimedOut
	EventEndReached
	EventWarning
)

var eventNames = [...]string{
	EventSongLoaded:          "song-loaded",
	EventStateChanged:        "state-changed",
	EventCursorMoved:         "cursor-moved",
	EventTempoChanged:        "tempo-changed",
	EventSoloChanged:         "solo-changed",
	EventCountInBeat:         "count-in-beat",
	EventOffsetChanged:       "offset-changed",
	EventCalibrated:          "calibrated",
	EventCalibrationTimedOut: "calibration-timed-out",
	EventEndReached:          "end-reached",
	EventWarning:             "warning",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event carries session notifications from Watch. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind        EventKind
	Song        string
	State       PlaybackState
	CursorIndex int
	Timestamp   float64
	Ticks       int64
	BPM         float64
	Instrument  string
	Beat        int
	Offset      time.Duration

	// Cached marks a calibration result reported again without measuring.
	Cached bool
	Err    error
}

// handler reacts to an event inside the session. It runs with the session
// lock held and may change session state.
type handler func(s *Session, ev Event)

func defaultHandlers() map[EventKind]handler {
	return map[EventKind]handler{
		EventEndReached:          (*Session).onEndReached,
		EventCountInBeat:         (*Session).onCountInBeat,
		EventCalibrated:          (*Session).onCalibrated,
		EventCalibrationTimedOut: (*Session).onCalibrationTimedOut,
		EventWarning:             (*Session).onWarning,
	}
}

// dispatch runs the handler for ev and then publishes it to Watch.
func (s *Session) dispatch(ev Event) {
	if h, ok := s.handlers[ev.Kind]; ok {
		h(s, ev)
	}
	s.log.WithField("event", ev.Kind.String()).Trace("session event")
	s.sendEvent(ev)
}

func (s *Session) sendEvent(ev Event) {
	s.eventChMu.Lock()
	ch := s.eventCh
	s.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel that receives session events. Sends never block:
// events are dropped when the channel is full. Only the most recent Watch
// channel receives events.
func (s *Session) Watch() <-chan Event {
	ch := make(chan Event, 64)
	s.eventChMu.Lock()
	s.eventCh = ch
	s.eventChMu.Unlock()
	return ch
}

func (s *Session) onWarning(ev Event) {
	s.log.WithFields(logrus.Fields{"instrument": ev.Instrument}).WithError(ev.Err).Warn("session warning")
}
