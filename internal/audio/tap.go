package audio

import "sync"

const tapLen = 131072

// Tap keeps the most recent mono samples of a stream so the level of what is
// currently heard can be inspected from another goroutine.
type Tap struct {
	mu          sync.Mutex
	ring        []float32
	writePos    int
	totalTapped int64 // mono samples written since the last Reset
}

func NewTap() *Tap {
	return &Tap{ring: make([]float32, tapLen)}
}

// Write is called from the audio goroutine with interleaved stereo samples.
func (t *Tap) Write(samples []float32) {
	t.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		t.ring[t.writePos] = (samples[i] + samples[i+1]) * 0.5
		t.writePos = (t.writePos + 1) % tapLen
		t.totalTapped++
	}
	t.mu.Unlock()
}

// Reset clears the tapped sample counter and the buffer.
func (t *Tap) Reset() {
	t.mu.Lock()
	clear(t.ring)
	t.totalTapped = 0
	t.mu.Unlock()
}

// Snapshot fills dst with the samples ending at played, the number of frames
// the output has actually played since the last Reset. Samples older than the
// last Reset read as silence.
func (t *Tap) Snapshot(dst []float32, played int64) int {
	n := len(dst)
	if n > tapLen {
		n = tapLen
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// how far the writer is ahead of the speaker
	delay := int(t.totalTapped - played)
	if delay < 0 {
		delay = 0
	}
	if delay > tapLen-n {
		delay = tapLen - n
	}
	start := (t.writePos - delay - n + tapLen*2) % tapLen
	for i := 0; i < n; i++ {
		dst[i] = t.ring[(start+i)%tapLen]
	}
	return n
}
