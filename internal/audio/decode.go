package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

var ErrUnsupportedFormat = errors.New("audio: unsupported file format")

// DecodeFile decodes an mp3, wav or ogg file into interleaved stereo float32
// frames at sampleRate.
func DecodeFile(path string, sampleRate int) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pcm, err := Decode(bytes.NewReader(data), filepath.Ext(path), sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, nil
}

// Decode picks a decoder by file extension.
func Decode(src io.Reader, ext string, sampleRate int) ([]float32, error) {
	var (
		stream io.Reader
		err    error
	)
	switch strings.ToLower(ext) {
	case ".mp3":
		stream, err = mp3.DecodeWithSampleRate(sampleRate, src)
	case ".wav":
		stream, err = wav.DecodeWithSampleRate(sampleRate, src)
	case ".ogg", ".oga":
		stream, err = vorbis.DecodeWithSampleRate(sampleRate, src)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	return int16ToFloat(raw), nil
}

// int16ToFloat converts 16-bit little-endian stereo PCM to float32.
func int16ToFloat(raw []byte) []float32 {
	n := len(raw) / 4 * 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out
}
