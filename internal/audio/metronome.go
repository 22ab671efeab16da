package audio

import (
	"encoding/binary"
	"math"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

const (
	clickMs        = 30
	clickFreq      = 1000.0
	accentFreq     = 1500.0
	clickAmplitude = 0.6
)

// Metronome plays short sine clicks for the count-in.
type Metronome struct {
	ctx    *ebitaudio.Context
	beat   []byte
	accent []byte
}

func newMetronome(ctx *ebitaudio.Context, sampleRate int) *Metronome {
	return &Metronome{
		ctx:    ctx,
		beat:   float32Bytes(clickSamples(sampleRate, clickFreq)),
		accent: float32Bytes(clickSamples(sampleRate, accentFreq)),
	}
}

// Click plays one click. The first beat of a bar is accented.
func (m *Metronome) Click(accent bool) {
	buf := m.beat
	if accent {
		buf = m.accent
	}
	m.ctx.NewPlayerF32FromBytes(buf).Play()
}

// clickSamples renders an exponentially decaying stereo sine burst.
func clickSamples(sampleRate int, freq float64) []float32 {
	frames := sampleRate * clickMs / 1000
	out := make([]float32, frames*2)
	decay := 5.0 / float64(frames)
	for i := 0; i < frames; i++ {
		env := math.Exp(-decay * float64(i))
		v := float32(clickAmplitude * env * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		out[i*2] = v
		out[i*2+1] = v
	}
	return out
}

func float32Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}
