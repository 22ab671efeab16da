package audio

import (
	"sync"

	"github.com/cbegin/playalong-go/internal/effects"
)

const (
	pitchWindowMs = 40
	fadeMs        = 5
)

// voice renders decoded PCM at a variable rate through a pitch shifter and a
// fader. The tap sees the signal before the fader so a muted track can still
// be measured.
type voice struct {
	mu      sync.Mutex
	pcm     []float32
	frames  int
	pos     float64
	pending float64
	rate    float64
	gain    float64
	muted   bool

	stage     *PitchStage
	semitones float64
	shift     *effects.PitchShift
	fader     *effects.Fader
	chain     *effects.Chain
	tap       *Tap
}

func newVoice(pcm []float32, sampleRate int, stage *PitchStage) *voice {
	v := &voice{
		pcm:    pcm,
		frames: len(pcm) / 2,
		rate:   1,
		gain:   1,
		stage:  stage,
		shift:  effects.NewPitchShift(sampleRate, pitchWindowMs),
		fader:  effects.NewFader(sampleRate, 1, fadeMs),
		tap:    NewTap(),
	}
	v.chain = effects.NewChain(v.shift, v.fader)
	return v
}

func (v *voice) Process(dst []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stage != nil {
		if st := v.stage.Semitones(); st != v.semitones {
			v.semitones = st
			v.shift.SetSemitones(st)
		}
	}
	last := v.frames - 1
	for i := 0; i+1 < len(dst); i += 2 {
		if v.pos >= float64(last) || last < 0 {
			dst[i], dst[i+1] = 0, 0
			if v.pos < float64(v.frames) {
				v.pos = float64(v.frames)
			}
			continue
		}
		j := int(v.pos)
		frac := float32(v.pos - float64(j))
		a, b := j*2, (j+1)*2
		dst[i] = v.pcm[a] + (v.pcm[b]-v.pcm[a])*frac
		dst[i+1] = v.pcm[a+1] + (v.pcm[b+1]-v.pcm[a+1])*frac
		v.pos += v.rate
	}
	v.tap.Write(dst)
	v.chain.ProcessBuffer(dst)
}

// Rewind moves the read head to the position set by seek and drops the
// effect state of the old position.
func (v *voice) Rewind() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pos = v.pending
	v.shift.Reset()
	v.fader.Reset()
	v.tap.Reset()
}

func (v *voice) seek(frame float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if frame < 0 {
		frame = 0
	}
	v.pending = frame
	v.pos = frame
}

func (v *voice) position() (pos, base, rate float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pos, v.pending, v.rate
}

func (v *voice) ended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pos >= float64(v.frames-1)
}

func (v *voice) setRate(rate float64) {
	v.mu.Lock()
	v.rate = rate
	v.mu.Unlock()
}

func (v *voice) setMuted(muted bool) {
	v.mu.Lock()
	v.muted = muted
	v.applyGain()
	v.mu.Unlock()
}

func (v *voice) setGain(gain float64) {
	v.mu.Lock()
	v.gain = gain
	v.applyGain()
	v.mu.Unlock()
}

func (v *voice) getGain() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gain
}

func (v *voice) applyGain() {
	if v.muted {
		v.fader.SetGain(0)
		return
	}
	v.fader.SetGain(v.gain)
}
