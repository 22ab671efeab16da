package audio

import (
	"math"
	"sync/atomic"
)

// PitchStage holds the transposition shared by every track of an engine. It
// is written by the controller and read by the audio goroutines.
type PitchStage struct {
	semitones atomic.Uint64
}

func (p *PitchStage) SetSemitones(semitones float64) {
	p.semitones.Store(math.Float64bits(semitones))
}

func (p *PitchStage) Semitones() float64 {
	return math.Float64frombits(p.semitones.Load())
}
