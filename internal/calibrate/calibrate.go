// Package calibrate measures the silence at the start of a recording by
// playing it muted and watching the signal level.
package calibrate

import (
	"errors"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/playalong-go/internal/frame"
)

const (
	// DefaultThreshold is the mean absolute level, on a full scale of 1, that
	// counts as the first sound.
	DefaultThreshold = 10.0 / 128.0
	DefaultTimeout   = 15 * time.Second
	DefaultWindow    = 2048
)

var ErrRunning = errors.New("calibrate: calibration already running")

// Target is the source being measured.
type Target interface {
	Play()
	Pause()
	Seek(pos time.Duration) error
	Position() time.Duration
	SetGain(gain float64)
	Gain() float64
}

// Analyser exposes the most recent output samples of the target.
type Analyser interface {
	Samples(dst []float32) int
}

type Result struct {
	Offset   time.Duration
	TimedOut bool

	// Cached is set when the result is reported again by a later Calibrate.
	Cached bool
}

type Option func(*Calibrator)

func WithThreshold(threshold float64) Option {
	return func(c *Calibrator) { c.threshold = float32(threshold) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Calibrator) { c.timeout = d }
}

func WithWindow(samples int) Option {
	return func(c *Calibrator) { c.window = samples }
}

type state int

const (
	idle state = iota
	running
	complete
)

// Calibrator finds the offset once per song. Later calls reuse the result
// until Reset.
type Calibrator struct {
	loop      *frame.Loop
	threshold float32
	timeout   time.Duration
	window    int

	state    state
	result   Result
	buf      []float32
	target   Target
	analyser Analyser
	prior    time.Duration
	gain     float64
	done     func(Result)

	sampling *frame.Token
	deadline *frame.Token
}

func New(loop *frame.Loop, opts ...Option) *Calibrator {
	c := &Calibrator{
		loop:      loop,
		threshold: DefaultThreshold,
		timeout:   DefaultTimeout,
		window:    DefaultWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.window <= 0 {
		c.window = DefaultWindow
	}
	c.buf = make([]float32, c.window)
	return c
}

// Calibrate starts a muted run of target from the beginning. done is called
// from a loop step once the first sound is found or the timeout expires; on
// timeout the result carries prior. When a result already exists done is
// called immediately and started is false.
func (c *Calibrator) Calibrate(target Target, analyser Analyser, prior time.Duration, done func(Result)) (started bool, err error) {
	switch c.state {
	case running:
		return false, ErrRunning
	case complete:
		if done != nil {
			r := c.result
			r.Cached = true
			done(r)
		}
		return false, nil
	}
	c.gain = target.Gain()
	target.SetGain(0)
	if err := target.Seek(0); err != nil {
		target.SetGain(c.gain)
		return false, err
	}
	c.target = target
	c.analyser = analyser
	c.prior = prior
	c.done = done
	c.state = running
	target.Play()
	c.sampling = c.loop.Every(c.sample)
	c.deadline = c.loop.After(c.timeout, func() {
		c.finish(Result{Offset: c.prior, TimedOut: true})
	})
	return true, nil
}

func (c *Calibrator) sample(time.Time) bool {
	n := c.analyser.Samples(c.buf)
	if n <= 0 {
		return true
	}
	vek32.Abs_Inplace(c.buf[:n])
	if level := vek32.Mean(c.buf[:n]); level <= c.threshold {
		return true
	}
	c.finish(Result{Offset: c.target.Position()})
	return false
}

func (c *Calibrator) finish(r Result) {
	c.release()
	c.state = complete
	c.result = r
	done := c.done
	c.done = nil
	if done != nil {
		done(r)
	}
}

func (c *Calibrator) release() {
	c.sampling.Cancel()
	c.deadline.Cancel()
	c.target.Pause()
	c.target.SetGain(c.gain)
	c.target = nil
	c.analyser = nil
}

// Cancel aborts a running calibration without recording a result.
func (c *Calibrator) Cancel() {
	if c.state != running {
		return
	}
	c.release()
	c.done = nil
	c.state = idle
}

// Reset forgets the previous result so the next Calibrate measures again.
func (c *Calibrator) Reset() {
	c.Cancel()
	c.state = idle
	c.result = Result{}
}

func (c *Calibrator) Running() bool  { return c.state == running }
func (c *Calibrator) Complete() bool { return c.state == complete }

// Result returns the last completed measurement.
func (c *Calibrator) Result() (Result, bool) {
	return c.result, c.state == complete
}
