// Package trackstest provides an in-memory audio source for tests.
package trackstest

import (
	"fmt"
	"time"
)

// Source is a fake tracks.Source whose position only moves when Advance is
// called. When Onset is set, Samples returns a loud signal from Onset on.
type Source struct {
	Name   string
	Log    *[]string
	Length time.Duration
	Onset  time.Duration

	SeekErr error

	pos     time.Duration
	playing bool
	muted   bool
	rate    float64
	gain    float64
	closed  bool
}

func New(name string, log *[]string) *Source {
	return &Source{Name: name, Log: log, Length: 10 * time.Minute, Onset: -1, rate: 1, gain: 1}
}

func (s *Source) record(format string, args ...any) {
	if s.Log != nil {
		*s.Log = append(*s.Log, s.Name+" "+fmt.Sprintf(format, args...))
	}
}

func (s *Source) Play() {
	s.playing = true
	s.record("play")
}

func (s *Source) Pause() {
	s.playing = false
	s.record("pause")
}

func (s *Source) Seek(pos time.Duration) error {
	if s.SeekErr != nil {
		return s.SeekErr
	}
	s.pos = pos
	s.record("seek %v", pos)
	return nil
}

func (s *Source) Position() time.Duration { return s.pos }

func (s *Source) SetMuted(muted bool) { s.muted = muted }

func (s *Source) SetPlaybackRate(rate float64) { s.rate = rate }

func (s *Source) Ended() bool { return s.pos >= s.Length }

func (s *Source) Close() error {
	s.closed = true
	s.record("close")
	return nil
}

func (s *Source) SetGain(gain float64) { s.gain = gain }
func (s *Source) Gain() float64        { return s.gain }

// Samples fills dst with the signal at the current position.
func (s *Source) Samples(dst []float32) int {
	var v float32
	if s.Onset >= 0 && s.pos >= s.Onset {
		v = 0.5
	}
	for i := range dst {
		if i%2 == 0 {
			dst[i] = v
		} else {
			dst[i] = -v
		}
	}
	return len(dst)
}

// Advance moves a playing source forward by d of wall time.
func (s *Source) Advance(d time.Duration) {
	if !s.playing {
		return
	}
	s.pos += time.Duration(float64(d) * s.rate)
	if s.pos > s.Length {
		s.pos = s.Length
	}
}

func (s *Source) Playing() bool { return s.playing }
func (s *Source) Muted() bool   { return s.muted }
func (s *Source) Rate() float64 { return s.rate }
func (s *Source) Closed() bool  { return s.closed }
