package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

// ramp returns stereo PCM where frame i holds i/scale on both channels.
func ramp(frames int, scale float32) []float32 {
	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		out[i*2] = float32(i) / scale
		out[i*2+1] = float32(i) / scale
	}
	return out
}

func TestVoiceUnityRateIsTransparent(t *testing.T) {
	pcm := ramp(64, 64)
	v := newVoice(pcm, 1000, &PitchStage{})
	out := make([]float32, 32*2)
	v.Process(out)
	for i := range out {
		if out[i] != pcm[i] {
			t.Fatalf("sample %d = %f, want %f", i, out[i], pcm[i])
		}
	}
}

func TestVoiceVarispeed(t *testing.T) {
	cases := []struct {
		rate float64
		want []float32
	}{
		{2, []float32{0, 2, 4, 6}},
		{0.5, []float32{0, 0.5, 1, 1.5}},
	}
	for _, tc := range cases {
		v := newVoice(ramp(16, 1), 1000, nil)
		v.setRate(tc.rate)
		out := make([]float32, 8)
		v.Process(out)
		for i, w := range tc.want {
			if out[i*2] != w || out[i*2+1] != w {
				t.Fatalf("rate %v frame %d = %f, want %f", tc.rate, i, out[i*2], w)
			}
		}
	}
}

func TestVoiceEndsInSilence(t *testing.T) {
	v := newVoice(ramp(4, 1), 1000, nil)
	out := make([]float32, 16)
	v.Process(out)
	if !v.ended() {
		t.Fatalf("voice not ended")
	}
	for i := 8; i < 16; i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d after end = %f", i, out[i])
		}
	}
}

func TestVoiceMuteKeepsTap(t *testing.T) {
	v := newVoice(ramp(4096, 8192), 1000, nil)
	v.setMuted(true)
	out := make([]float32, 2048)
	v.Process(out)
	if out[len(out)-1] != 0 {
		t.Fatalf("muted output = %f, want 0", out[len(out)-1])
	}
	snap := make([]float32, 8)
	v.tap.Snapshot(snap, 1024)
	if snap[7] == 0 {
		t.Fatalf("tap is silent while muted")
	}
	v.setMuted(false)
	v.setGain(0.5)
	if v.getGain() != 0.5 {
		t.Fatalf("gain = %v", v.getGain())
	}
}

func TestStreamReaderSeekRewindsVoice(t *testing.T) {
	v := newVoice(ramp(100, 1), 1000, nil)
	r := NewStreamReader(v)
	buf := make([]byte, 10*8)
	if n, err := r.Read(buf); err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if r.FramesRead() != 10 {
		t.Fatalf("frames read = %d", r.FramesRead())
	}
	v.seek(50)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if r.FramesRead() != 0 {
		t.Fatalf("frames read after seek = %d", r.FramesRead())
	}
	if _, err := r.Read(buf[:8]); err != nil {
		t.Fatal(err)
	}
	got := math.Float32frombits(binary.LittleEndian.Uint32(buf))
	if got != 50 {
		t.Fatalf("first sample after seek = %f, want 50", got)
	}
}

func TestTapSnapshotAlignsToPlayed(t *testing.T) {
	tap := NewTap()
	tap.Write(ramp(100, 1))
	dst := make([]float32, 10)
	tap.Snapshot(dst, 90)
	for i, s := range dst {
		if s != float32(80+i) {
			t.Fatalf("dst[%d] = %f, want %d", i, s, 80+i)
		}
	}
	tap.Reset()
	tap.Snapshot(dst, 0)
	for _, s := range dst {
		if s != 0 {
			t.Fatalf("snapshot after reset = %v", dst)
		}
	}
}

func TestPitchStage(t *testing.T) {
	var p PitchStage
	p.SetSemitones(-2.5)
	if p.Semitones() != -2.5 {
		t.Fatalf("semitones = %v", p.Semitones())
	}
	v := newVoice(ramp(8, 1), 44100, &p)
	v.Process(make([]float32, 4))
	if v.shift.Semitones() != -2.5 {
		t.Fatalf("voice shifter not updated: %v", v.shift.Semitones())
	}
}

func wavFile(sampleRate int, frames [][2]int16) []byte {
	var b bytes.Buffer
	dataLen := uint32(len(frames) * 4)
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, 36+dataLen)
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*4))
	binary.Write(&b, binary.LittleEndian, uint16(4))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, dataLen)
	for _, f := range frames {
		binary.Write(&b, binary.LittleEndian, f[0])
		binary.Write(&b, binary.LittleEndian, f[1])
	}
	return b.Bytes()
}

func TestDecodeWav(t *testing.T) {
	data := wavFile(44100, [][2]int16{{0, 0}, {16384, -16384}, {-32768, 32767}})
	pcm, err := Decode(bytes.NewReader(data), ".WAV", 44100)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []float32{0, 0, 0.5, -0.5, -1, 32767.0 / 32768}
	if len(pcm) != len(want) {
		t.Fatalf("len = %d, want %d", len(pcm), len(want))
	}
	for i := range want {
		if pcm[i] != want[i] {
			t.Fatalf("pcm[%d] = %f, want %f", i, pcm[i], want[i])
		}
	}
	if _, err := Decode(bytes.NewReader(data), ".flac", 44100); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestClickSamples(t *testing.T) {
	s := clickSamples(1000, 100)
	if len(s) != 60 {
		t.Fatalf("len = %d, want 60", len(s))
	}
	var peak float32
	for _, v := range s {
		peak = max(peak, float32(math.Abs(float64(v))))
	}
	if peak <= 0 || peak > clickAmplitude {
		t.Fatalf("peak = %f", peak)
	}
	if got := len(float32Bytes(s)); got != 240 {
		t.Fatalf("bytes = %d", got)
	}
}
