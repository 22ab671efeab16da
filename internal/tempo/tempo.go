// Package tempo changes the playing speed of a song while keeping its pitch.
package tempo

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultMinFactor = 0.66
	DefaultMaxFactor = 1.15
)

var ErrOutOfRange = errors.New("tempo: bpm out of range")

// OutOfRangeError reports a rejected tempo together with the allowed range.
type OutOfRangeError struct {
	BPM, Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("tempo: %.2f bpm outside [%.2f, %.2f]", e.BPM, e.Min, e.Max)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// Clock receives the new tempo. *transport.Clock satisfies it.
type Clock interface {
	SetBPM(bpm float64) error
}

// Rater receives the playback rate. *tracks.Set satisfies it.
type Rater interface {
	SetPlaybackRate(rate float64) error
}

// PitchStage transposes every track by a number of semitones.
type PitchStage interface {
	SetSemitones(semitones float64)
}

type Option func(*Controller)

// WithRange sets the allowed tempo as factors of the original tempo.
func WithRange(minFactor, maxFactor float64) Option {
	return func(c *Controller) {
		c.minFactor = minFactor
		c.maxFactor = maxFactor
	}
}

type Controller struct {
	original  float64
	current   float64
	minFactor float64
	maxFactor float64

	clock Clock
	rater Rater
	pitch PitchStage
}

// New creates a controller for a song written at original bpm. pitch may be
// nil when the audio backend cannot transpose.
func New(original float64, clock Clock, rater Rater, pitch PitchStage, opts ...Option) (*Controller, error) {
	if !(original > 0) {
		return nil, fmt.Errorf("tempo: invalid original tempo %v", original)
	}
	c := &Controller{
		original:  original,
		current:   original,
		minFactor: DefaultMinFactor,
		maxFactor: DefaultMaxFactor,
		clock:     clock,
		rater:     rater,
		pitch:     pitch,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !(c.minFactor > 0) || c.maxFactor < c.minFactor {
		return nil, fmt.Errorf("tempo: invalid range factors %v..%v", c.minFactor, c.maxFactor)
	}
	return c, nil
}

func (c *Controller) Original() float64 { return c.original }
func (c *Controller) Current() float64  { return c.current }
func (c *Controller) Rate() float64     { return c.current / c.original }

// Range returns the lowest and highest accepted bpm.
func (c *Controller) Range() (lo, hi float64) {
	return c.minFactor * c.original, c.maxFactor * c.original
}

// SetTempo retimes the clock and every track to bpm. Out-of-range values are
// rejected before anything changes.
func (c *Controller) SetTempo(bpm float64) error {
	lo, hi := c.Range()
	eps := c.original * 1e-9
	if math.IsNaN(bpm) || bpm < lo-eps || bpm > hi+eps {
		return &OutOfRangeError{BPM: bpm, Min: lo, Max: hi}
	}
	rate := bpm / c.original
	if c.rater != nil {
		if err := c.rater.SetPlaybackRate(rate); err != nil {
			return err
		}
	}
	if c.pitch != nil {
		c.pitch.SetSemitones(Semitones(rate))
	}
	if c.clock != nil {
		if err := c.clock.SetBPM(bpm); err != nil {
			return err
		}
	}
	c.current = bpm
	return nil
}

func (c *Controller) ResetTempo() error {
	return c.SetTempo(c.original)
}

// Semitones is the transposition that cancels the pitch change of playing
// audio at rate.
func Semitones(rate float64) float64 {
	if rate == 1 {
		return 0
	}
	return -12 * math.Log2(rate)
}
