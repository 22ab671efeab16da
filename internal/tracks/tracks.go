package tracks

import (
	"errors"
	"fmt"
	"time"

	"github.com/cbegin/playalong-go/internal/transport"
)

// Main is the name of the full-mix track. It is audible whenever no other
// track is soloed.
const Main = "Main"

var (
	ErrUnknownTrack = errors.New("tracks: unknown track")
	ErrInvalidRate  = errors.New("tracks: playback rate must be positive")
)

// Source is one decoded audio file provided by the audio engine.
type Source interface {
	Play()
	Pause()
	Seek(pos time.Duration) error
	// Position reports the current read position in source time.
	Position() time.Duration
	SetMuted(muted bool)
	SetPlaybackRate(rate float64)
	// Ended reports that the source has played to its end.
	Ended() bool
	Close() error
}

// Opener opens a named source from an asset location.
type Opener interface {
	Open(name, location string) (Source, error)
}

type Track struct {
	Name         string
	Source       Source
	Audible      bool
	PlaybackRate float64
}

// Set owns every track of a song and keeps them locked to the transport.
// Source time for tick t is offset + t·60/(ppq·originalBPM); the sources run
// at playbackRate so this holds at every tempo.
type Set struct {
	clock       *transport.Clock
	originalBPM float64
	offset      time.Duration

	tracks  []*Track
	byName  map[string]*Track
	solo    string
	rate    float64
	playing bool
}

func New(clock *transport.Clock, originalBPM float64) *Set {
	return &Set{
		clock:       clock,
		originalBPM: originalBPM,
		byName:      make(map[string]*Track),
		rate:        1,
	}
}

// Add registers a source. The Main track starts audible, all others muted.
func (s *Set) Add(name string, src Source) error {
	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("tracks: duplicate track %q", name)
	}
	t := &Track{Name: name, Source: src, PlaybackRate: s.rate}
	s.tracks = append(s.tracks, t)
	s.byName[name] = t
	src.SetPlaybackRate(s.rate)
	s.applyAudible()
	return nil
}

func (s *Set) Track(name string) (*Track, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Names lists the tracks in registration order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t.Name)
	}
	return out
}

func (s *Set) Len() int { return len(s.tracks) }

// Audible returns the audible track's name.
func (s *Set) Audible() string {
	if s.solo == "" {
		return Main
	}
	return s.solo
}

func (s *Set) PlaybackRate() float64 { return s.rate }
func (s *Set) Playing() bool         { return s.playing }

func (s *Set) SetOffset(offset time.Duration) { s.offset = offset }
func (s *Set) Offset() time.Duration          { return s.offset }

// TransportPosition is the source time matching the clock's current tick.
func (s *Set) TransportPosition() time.Duration {
	return s.offset + transport.Duration(s.clock.Ticks(), s.originalBPM, s.clock.PPQ())
}

// SetAudible solos name, or restores the main mix when name is empty. While
// playing, the switch is done as pause, swap, seek to the transport position,
// resume.
func (s *Set) SetAudible(name string) error {
	if name == Main {
		name = ""
	}
	if name != "" {
		if _, ok := s.byName[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTrack, name)
		}
	}
	if name == s.solo {
		return nil
	}
	if !s.playing {
		s.solo = name
		s.applyAudible()
		return nil
	}
	s.pauseAll()
	s.solo = name
	s.applyAudible()
	err := s.seekAll(s.TransportPosition())
	s.playAll()
	return err
}

func (s *Set) applyAudible() {
	audible := s.Audible()
	for _, t := range s.tracks {
		t.Audible = t.Name == audible
		t.Source.SetMuted(!t.Audible)
	}
}

// SetPlaybackRate applies rate to every track.
func (s *Set) SetPlaybackRate(rate float64) error {
	if !(rate > 0) {
		return ErrInvalidRate
	}
	s.rate = rate
	for _, t := range s.tracks {
		t.PlaybackRate = rate
		t.Source.SetPlaybackRate(rate)
	}
	return nil
}

// Start seeks every track to the transport position and starts them back to
// back.
func (s *Set) Start() error {
	err := s.seekAll(s.TransportPosition())
	s.playAll()
	s.playing = true
	return err
}

func (s *Set) Pause() {
	s.pauseAll()
	s.playing = false
}

// Stop pauses every track and rewinds it to the start of the file.
func (s *Set) Stop() error {
	s.pauseAll()
	s.playing = false
	return s.seekAll(0)
}

// Seek moves every track to pos without changing play state.
func (s *Set) Seek(pos time.Duration) error {
	return s.seekAll(pos)
}

// Ended reports whether the audible track has played out.
func (s *Set) Ended() bool {
	t, ok := s.byName[s.Audible()]
	return ok && t.Source.Ended()
}

// Dispose releases every source. The set must not be used afterwards.
func (s *Set) Dispose() error {
	var errs []error
	for _, t := range s.tracks {
		t.Source.Pause()
		if err := t.Source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", t.Name, err))
		}
	}
	s.tracks = nil
	s.byName = map[string]*Track{}
	s.playing = false
	return errors.Join(errs...)
}

func (s *Set) seekAll(pos time.Duration) error {
	var errs []error
	for _, t := range s.tracks {
		if err := t.Source.Seek(pos); err != nil {
			errs = append(errs, fmt.Errorf("seek %s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Set) playAll() {
	for _, t := range s.tracks {
		t.Source.Play()
	}
}

func (s *Set) pauseAll() {
	for _, t := range s.tracks {
		t.Source.Pause()
	}
}
