package transport

import (
	"errors"
	"math"
	"math/bits"
	"time"
)

// ErrInvalidTempo is returned for non-positive or non-finite tempos.
var ErrInvalidTempo = errors.New("transport: tempo must be positive")

// DefaultPPQ is the tick resolution used when none is configured.
const DefaultPPQ = 480

// ticksDenom is the number of nanoseconds in a minute times the micro-BPM
// scale; ticks = elapsedNs × microBPM × ppq / ticksDenom.
const ticksDenom uint64 = 60_000_000_000 * 1_000_000

// Clock is the transport: a monotonically increasing tick counter advancing at
// bpm × ppq / 60 ticks per second. Tick arithmetic is integer only; the
// fractional part of a tick is carried as a remainder so tempo changes never
// accumulate rounding drift.
type Clock struct {
	ppq      int64
	microBPM uint64
	now      func() time.Time

	running bool
	anchor  time.Time
	base    int64
	rem     uint64
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow replaces the wall clock, mostly for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

// New creates a stopped clock at tick 0.
func New(ppq int, bpm float64, opts ...Option) (*Clock, error) {
	if ppq <= 0 {
		return nil, errors.New("transport: ppq must be positive")
	}
	mb, err := toMicroBPM(bpm)
	if err != nil {
		return nil, err
	}
	c := &Clock{ppq: int64(ppq), microBPM: mb, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func toMicroBPM(bpm float64) (uint64, error) {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return 0, ErrInvalidTempo
	}
	return uint64(math.Round(bpm * 1_000_000)), nil
}

func (c *Clock) PPQ() int      { return int(c.ppq) }
func (c *Clock) Running() bool { return c.running }

// BPM returns the current tempo.
func (c *Clock) BPM() float64 {
	return float64(c.microBPM) / 1_000_000
}

// Ticks returns the current tick position.
func (c *Clock) Ticks() int64 {
	if !c.running {
		return c.base
	}
	q, _ := c.elapsed(c.now())
	return c.base + q
}

// elapsed returns the whole ticks and remainder accumulated since the anchor.
func (c *Clock) elapsed(now time.Time) (int64, uint64) {
	d := now.Sub(c.anchor)
	if d <= 0 {
		return 0, c.rem
	}
	hi, lo := bits.Mul64(uint64(d), c.microBPM*uint64(c.ppq))
	var carry uint64
	lo, carry = bits.Add64(lo, c.rem, 0)
	hi += carry
	q, r := bits.Div64(hi, lo, ticksDenom)
	return int64(q), r
}

// fold moves elapsed time into the integer base and re-anchors at now.
func (c *Clock) fold(now time.Time) {
	q, r := c.elapsed(now)
	c.base += q
	c.rem = r
	c.anchor = now
}

// Start begins advancing from atTick. Starting a running clock is a no-op.
func (c *Clock) Start(atTick int64) {
	if c.running {
		return
	}
	if atTick != c.base {
		c.base = atTick
		c.rem = 0
	}
	if c.base < 0 {
		c.base = 0
	}
	c.anchor = c.now()
	c.running = true
}

// Pause freezes the tick counter. Pausing a stopped or paused clock is a no-op.
func (c *Clock) Pause() {
	if !c.running {
		return
	}
	c.fold(c.now())
	c.running = false
}

// Stop halts the clock and rewinds it to tick 0.
func (c *Clock) Stop() {
	c.running = false
	c.base = 0
	c.rem = 0
}

// SetBPM changes the rate at which ticks accumulate. The tick counter itself
// does not jump.
func (c *Clock) SetBPM(bpm float64) error {
	mb, err := toMicroBPM(bpm)
	if err != nil {
		return err
	}
	if c.running {
		c.fold(c.now())
	}
	c.microBPM = mb
	return nil
}

// Duration converts a tick count to wall time at the given tempo.
func Duration(ticks int64, bpm float64, ppq int) time.Duration {
	if bpm <= 0 || ppq <= 0 {
		return 0
	}
	return time.Duration(float64(ticks) * 60 / (bpm * float64(ppq)) * float64(time.Second))
}

// TicksFor converts a wall-time span to ticks at the given tempo.
func TicksFor(d time.Duration, bpm float64, ppq int) int64 {
	return int64(math.Round(d.Seconds() * bpm * float64(ppq) / 60))
}
