package effects

import (
	"math"
	"sync/atomic"
)

// Fader is a gain stage whose target can be changed from any goroutine. The
// applied gain ramps toward the target so mute toggles do not click.
type Fader struct {
	target atomic.Uint64 // math.Float64bits
	gain   float32
	step   float32
}

// NewFader creates a fader at the given gain that reaches a new target within
// rampMs.
func NewFader(sampleRate int, gain float64, rampMs float64) *Fader {
	frames := rampMs * float64(sampleRate) / 1000.0
	if frames < 1 {
		frames = 1
	}
	f := &Fader{gain: float32(gain), step: float32(1 / frames)}
	f.target.Store(math.Float64bits(gain))
	return f
}

func (f *Fader) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	f.target.Store(math.Float64bits(gain))
}

func (f *Fader) Gain() float64 {
	return math.Float64frombits(f.target.Load())
}

func (f *Fader) Process(l, r float32) (float32, float32) {
	target := float32(math.Float64frombits(f.target.Load()))
	switch {
	case f.gain < target:
		f.gain = min(f.gain+f.step, target)
	case f.gain > target:
		f.gain = max(f.gain-f.step, target)
	}
	return l * f.gain, r * f.gain
}

// Reset jumps straight to the target gain.
func (f *Fader) Reset() {
	f.gain = float32(math.Float64frombits(f.target.Load()))
}
