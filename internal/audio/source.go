package audio

import (
	"fmt"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/playalong-go/internal/tracks"
)

const defaultBufferSize = 50 * time.Millisecond

// Engine opens decoded tracks on the shared ebiten audio context. All tracks
// of an engine share one pitch stage.
type Engine struct {
	sampleRate int
	bufferSize time.Duration
	ctx        *ebitaudio.Context
	pitch      *PitchStage
	log        logrus.FieldLogger
}

type Option func(*Engine)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithBufferSize sets the player buffer. Smaller buffers make mute and
// tempo changes audible sooner.
func WithBufferSize(d time.Duration) Option {
	return func(e *Engine) { e.bufferSize = d }
}

func NewEngine(sampleRate int, opts ...Option) (*Engine, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		sampleRate: sampleRate,
		bufferSize: defaultBufferSize,
		ctx:        ctx,
		pitch:      &PitchStage{},
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) SampleRate() int       { return e.sampleRate }
func (e *Engine) Pitch() *PitchStage    { return e.pitch }
func (e *Engine) Metronome() *Metronome { return newMetronome(e.ctx, e.sampleRate) }

// Open decodes the file at location and wraps it in a player.
func (e *Engine) Open(name, location string) (tracks.Source, error) {
	start := time.Now()
	pcm, err := DecodeFile(location, e.sampleRate)
	if err != nil {
		return nil, err
	}
	src, err := e.NewSource(name, pcm)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"track":    name,
		"length":   src.Length().Round(time.Millisecond),
		"decodeMs": time.Since(start).Milliseconds(),
	}).Debug("track decoded")
	return src, nil
}

// NewSource plays already decoded interleaved stereo PCM.
func (e *Engine) NewSource(name string, pcm []float32) (*Source, error) {
	v := newVoice(pcm, e.sampleRate, e.pitch)
	reader := NewStreamReader(v)
	pl, err := e.ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("audio: player for %s: %w", name, err)
	}
	pl.SetBufferSize(e.bufferSize)
	return &Source{
		name:       name,
		sampleRate: e.sampleRate,
		voice:      v,
		reader:     reader,
		player:     pl,
	}, nil
}

// Source is one track playing through its own ebiten player. It implements
// tracks.Source and the calibration target.
type Source struct {
	name       string
	sampleRate int
	voice      *voice
	reader     *StreamReader
	player     *ebitaudio.Player
}

func (s *Source) Name() string { return s.name }

func (s *Source) Play()  { s.player.Play() }
func (s *Source) Pause() { s.player.Pause() }

// Seek moves the read head and drops whatever the player had buffered.
func (s *Source) Seek(pos time.Duration) error {
	s.voice.seek(pos.Seconds() * float64(s.sampleRate))
	return s.player.SetPosition(0)
}

// Position estimates the source time being heard: the read head minus the
// frames still queued in the player, scaled back by the playback rate.
func (s *Source) Position() time.Duration {
	pos, base, rate := s.voice.position()
	played := int64(s.player.Position().Seconds() * float64(s.sampleRate))
	if queued := s.reader.FramesRead() - played; queued > 0 {
		pos -= float64(queued) * rate
	}
	if pos < base {
		pos = base
	}
	return time.Duration(pos / float64(s.sampleRate) * float64(time.Second))
}

func (s *Source) SetMuted(muted bool)          { s.voice.setMuted(muted) }
func (s *Source) SetPlaybackRate(rate float64) { s.voice.setRate(rate) }
func (s *Source) SetGain(gain float64)         { s.voice.setGain(gain) }
func (s *Source) Gain() float64                { return s.voice.getGain() }
func (s *Source) Ended() bool                  { return s.voice.ended() }

// Length is the duration of the decoded audio at normal speed.
func (s *Source) Length() time.Duration {
	return time.Duration(float64(s.voice.frames) / float64(s.sampleRate) * float64(time.Second))
}

// Samples copies the most recently heard mono samples into dst.
func (s *Source) Samples(dst []float32) int {
	played := int64(s.player.Position().Seconds() * float64(s.sampleRate))
	return s.voice.tap.Snapshot(dst, played)
}

func (s *Source) Close() error {
	s.player.Pause()
	err := s.player.Close()
	if cerr := s.reader.Close(); err == nil {
		err = cerr
	}
	return err
}
