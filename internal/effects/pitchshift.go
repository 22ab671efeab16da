package effects

import "math"

// PitchShift transposes audio without changing its duration using two
// crossfaded read heads sweeping a short delay line.
type PitchShift struct {
	bufL, bufR []float32
	size       int
	pos        int
	window     float64 // sweep length in samples
	phase      float64 // 0..1 position of head A within the window
	ratio      float64
	semitones  float64
}

// NewPitchShift creates a shifter whose heads sweep windowMs of audio.
func NewPitchShift(sampleRate int, windowMs float64) *PitchShift {
	window := windowMs * float64(sampleRate) / 1000.0
	if window < 64 {
		window = 64
	}
	size := int(window) + 4
	return &PitchShift{
		bufL:   make([]float32, size),
		bufR:   make([]float32, size),
		size:   size,
		window: window,
		ratio:  1,
	}
}

// SetSemitones sets the transposition. 0 bypasses the delay line.
func (p *PitchShift) SetSemitones(semitones float64) {
	p.semitones = semitones
	p.ratio = math.Pow(2, semitones/12)
}

func (p *PitchShift) Semitones() float64 { return p.semitones }

func (p *PitchShift) Process(l, r float32) (float32, float32) {
	p.bufL[p.pos] = l
	p.bufR[p.pos] = r
	if p.semitones == 0 {
		p.advance()
		return l, r
	}

	p.phase += (1 - p.ratio) / p.window
	p.phase -= math.Floor(p.phase)
	phaseB := p.phase + 0.5
	if phaseB >= 1 {
		phaseB -= 1
	}
	gA := float32(math.Sin(math.Pi * p.phase))
	gB := float32(math.Sin(math.Pi * phaseB))

	aL, aR := p.read(p.phase*p.window + 1)
	bL, bR := p.read(phaseB*p.window + 1)
	p.advance()
	return aL*gA + bL*gB, aR*gA + bR*gB
}

func (p *PitchShift) advance() {
	p.pos++
	if p.pos >= p.size {
		p.pos = 0
	}
}

func (p *PitchShift) read(delay float64) (float32, float32) {
	readPos := float64(p.pos) - delay
	for readPos < 0 {
		readPos += float64(p.size)
	}
	idx := int(readPos)
	frac := float32(readPos - float64(idx))
	idx2 := idx + 1
	if idx2 >= p.size {
		idx2 = 0
	}
	return p.bufL[idx]*(1-frac) + p.bufL[idx2]*frac,
		p.bufR[idx]*(1-frac) + p.bufR[idx2]*frac
}

func (p *PitchShift) Reset() {
	for i := range p.bufL {
		p.bufL[i] = 0
		p.bufR[i] = 0
	}
	p.pos = 0
	p.phase = 0
}
