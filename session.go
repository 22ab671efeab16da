// Package playalong plays a score-following session: the full mix or one
// play-along track per instrument, kept in sync with a score cursor under
// tempo changes and track switches.
package playalong

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/playalong-go/internal/audio"
	"github.com/cbegin/playalong-go/internal/calibrate"
	"github.com/cbegin/playalong-go/internal/catalog"
	"github.com/cbegin/playalong-go/internal/config"
	"github.com/cbegin/playalong-go/internal/cursor"
	"github.com/cbegin/playalong-go/internal/frame"
	"github.com/cbegin/playalong-go/internal/midiscore"
	"github.com/cbegin/playalong-go/internal/tempo"
	"github.com/cbegin/playalong-go/internal/timeline"
	"github.com/cbegin/playalong-go/internal/tracks"
	"github.com/cbegin/playalong-go/internal/transport"
)

// Song is the metadata record a session is loaded from.
type Song = catalog.Song

// MainTrack is the name of the full-mix track.
const MainTrack = tracks.Main

// ScoreLoader opens the score file at path.
type ScoreLoader func(path string) (timeline.Score, error)

// Metronome clicks the count-in beats.
type Metronome interface {
	Click(accent bool)
}

type Option func(*Session)

func WithConfig(cfg *config.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) { s.log = log }
}

// WithNow replaces the time source of the transport clock.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithOpener replaces the audio backend used to open tracks.
func WithOpener(opener tracks.Opener) Option {
	return func(s *Session) { s.opener = opener }
}

// WithPitchStage sets the stage that compensates pitch on tempo changes.
func WithPitchStage(p tempo.PitchStage) Option {
	return func(s *Session) { s.pitch = p }
}

func WithScoreLoader(load ScoreLoader) Option {
	return func(s *Session) { s.loadScore = load }
}

func WithMetronome(m Metronome) Option {
	return func(s *Session) { s.metronome = m }
}

// Session owns the loaded song and every playback resource. All methods are
// safe for concurrent use; Frame must be called once per display refresh,
// either directly or through Run.
type Session struct {
	mu        sync.Mutex
	cfg       *config.Config
	log       logrus.FieldLogger
	now       func() time.Time
	opener    tracks.Opener
	pitch     tempo.PitchStage
	loadScore ScoreLoader
	metronome Metronome
	loop      *frame.Loop
	handlers  map[EventKind]handler

	song        *song
	state       PlaybackState
	calibrating bool
	closed      bool

	eventCh   chan Event
	eventChMu sync.Mutex
}

// song is everything that lives for one loaded song.
type song struct {
	meta        Song
	score       timeline.Score
	clock       *transport.Clock
	tracks      *tracks.Set
	tempo       *tempo.Controller
	cursor      *cursor.Scheduler
	calibrator  *calibrate.Calibrator
	instruments []string
	parts       map[string]int
	solo        string
	hidden      int
	offset      time.Duration
	calibrated  bool
	stale       bool

	playTask    *frame.Token
	countInTask *frame.Token
}

func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		cfg:  config.Default(),
		log:  logrus.StandardLogger(),
		now:  time.Now,
		loop: frame.NewLoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if s.loadScore == nil {
		s.loadScore = func(path string) (timeline.Score, error) {
			return midiscore.Load(path)
		}
	}
	s.handlers = defaultHandlers()
	return s, nil
}

// backend returns the track opener, starting the ebiten engine the first
// time it is needed when none was supplied.
func (s *Session) backend() (tracks.Opener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opener != nil {
		return s.opener, nil
	}
	eng, err := audio.NewEngine(s.cfg.SampleRate, audio.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	s.opener = eng
	if s.pitch == nil {
		s.pitch = eng.Pitch()
	}
	if s.metronome == nil {
		s.metronome = eng.Metronome()
	}
	return eng, nil
}

// OriginalTempo picks the song's written tempo: metadata first, then the
// score's first tempo marking, then the configured default.
func OriginalTempo(meta Song, score timeline.Score, fallback float64) float64 {
	if meta.Tempo > 0 {
		return meta.Tempo
	}
	if score != nil {
		if t := score.Tempo(); t > 0 {
			return t
		}
	}
	return fallback
}

// LoadSong opens the score and every track of meta and replaces the current
// song. On failure nothing opened is kept and the previous song stays loaded.
func (s *Session) LoadSong(meta Song) error {
	opener, err := s.backend()
	if err != nil {
		return err
	}
	log := s.log.WithField("song", meta.ID)
	root := s.cfg.AssetsRoot

	if meta.SheetMusic == "" {
		return &AssetLoadError{Kind: AssetScore, Err: errors.New("song has no score")}
	}
	scorePath := catalog.Resolve(root, meta.SheetMusic)
	score, err := s.loadScore(scorePath)
	if err != nil {
		return &AssetLoadError{Kind: AssetScore, URL: meta.SheetMusic, Err: err}
	}

	bpm := OriginalTempo(meta, score, s.cfg.DefaultTempo)
	clock, err := transport.New(s.cfg.PPQ, bpm, transport.WithNow(s.now))
	if err != nil {
		return err
	}
	set := tracks.New(clock, bpm)

	mainURL := meta.MainAudio
	if mainURL == "" {
		mainURL = meta.Instruments[catalog.MainInstrument]
	}
	if mainURL == "" {
		return &AssetLoadError{Kind: AssetAudio, Name: MainTrack, Err: errors.New("song has no main audio")}
	}
	instruments := make([]string, 0, len(meta.Instruments))
	for name, url := range meta.Instruments {
		if name != catalog.MainInstrument && url != "" {
			instruments = append(instruments, name)
		}
	}
	sort.Strings(instruments)

	open := func(name, url string) error {
		src, err := opener.Open(name, catalog.Resolve(root, url))
		if err != nil {
			return &AssetLoadError{Kind: AssetAudio, Name: name, URL: url, Err: err}
		}
		if err := set.Add(name, src); err != nil {
			return errors.Join(err, src.Close())
		}
		return nil
	}
	if err := open(MainTrack, mainURL); err != nil {
		return errors.Join(err, set.Dispose())
	}
	for _, name := range instruments {
		if err := open(name, meta.Instruments[name]); err != nil {
			return errors.Join(err, set.Dispose())
		}
	}

	for _, p := range score.Parts() {
		score.SetPartVisible(p.ID, true)
	}
	parts := mapInstruments(instruments, score.Parts())
	for _, name := range instruments {
		if _, ok := parts[name]; !ok {
			log.WithField("instrument", name).Warn("no score part for instrument")
		}
	}

	ctl, err := tempo.New(bpm, clock, set, s.pitch, tempo.WithRange(s.cfg.TempoMinFactor, s.cfg.TempoMaxFactor))
	if err != nil {
		return errors.Join(err, set.Dispose())
	}
	next := &song{
		meta:        meta,
		score:       score,
		clock:       clock,
		tracks:      set,
		tempo:       ctl,
		instruments: instruments,
		parts:       parts,
		hidden:      -1,
		calibrator: calibrate.New(s.loop,
			calibrate.WithThreshold(s.cfg.Calibration.Threshold),
			calibrate.WithTimeout(s.cfg.Calibration.Timeout),
			calibrate.WithWindow(s.cfg.Calibration.WindowSize),
		),
	}
	next.cursor = cursor.New(score.Cursor(), timeline.Build(score, s.cfg.PPQ), s.onCursorMove)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.Join(ErrClosed, set.Dispose())
	}
	var old error
	if s.song != nil {
		s.stopLocked()
		s.song.calibrator.Cancel()
		old = s.song.tracks.Dispose()
	}
	s.song = next
	s.state = Stopped
	s.calibrating = false
	if s.pitch != nil {
		s.pitch.SetSemitones(0)
	}

	log.WithFields(logrus.Fields{
		"bpm":    bpm,
		"tracks": set.Len(),
		"points": len(next.cursor.Points()),
	}).Info("song loaded")
	s.dispatch(Event{Kind: EventSongLoaded, Song: meta.ID, BPM: bpm})
	if old != nil {
		log.WithError(old).Warn("releasing previous song")
	}
	return nil
}

// Frame advances every scheduled task by one display refresh.
func (s *Session) Frame(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop.Step(now)
}

// Run calls Frame at the configured refresh rate until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	frame.Drive(ctx, s.cfg.RefreshRate, s.Frame)
	return ctx.Err()
}

// Close stops playback and releases the loaded song.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.song == nil {
		return nil
	}
	s.stopLocked()
	s.song.calibrator.Cancel()
	s.loop.CancelAll()
	err := s.song.tracks.Dispose()
	s.song = nil
	return err
}

func (s *Session) loaded() (*song, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.song == nil {
		return nil, ErrNoSong
	}
	return s.song, nil
}

// SetTempo changes the playing tempo. Values outside the allowed range are
// rejected with tempo.ErrOutOfRange and change nothing.
func (s *Session) SetTempo(bpm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.loaded()
	if err != nil {
		return err
	}
	if err := sg.tempo.SetTempo(bpm); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"song": sg.meta.ID, "bpm": bpm}).Debug("tempo changed")
	s.dispatch(Event{Kind: EventTempoChanged, BPM: bpm})
	return nil
}

func (s *Session) ResetTempo() error {
	s.mu.Lock()
	orig := 0.0
	if s.song != nil {
		orig = s.song.tempo.Original()
	}
	s.mu.Unlock()
	if orig == 0 {
		return ErrNoSong
	}
	return s.SetTempo(orig)
}

// SetOffset sets the audio time that lines up with the first beat of the
// score. While playing the tracks are moved to the new position at once.
func (s *Session) SetOffset(offset time.Duration) error {
	if offset < 0 {
		return ErrNegativeOffset
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.loaded()
	if err != nil {
		return err
	}
	return s.setOffsetLocked(sg, offset)
}

func (s *Session) setOffsetLocked(sg *song, offset time.Duration) error {
	sg.offset = offset
	sg.tracks.SetOffset(offset)
	var err error
	if s.state == Playing || s.state == Paused {
		err = sg.tracks.Seek(sg.tracks.TransportPosition())
	}
	s.dispatch(Event{Kind: EventOffsetChanged, Offset: offset})
	return err
}

// Status is a read-only snapshot of the session for display.
type Status struct {
	State       PlaybackState
	SongID      string
	Title       string
	BPM         float64
	OriginalBPM float64
	MinBPM      float64
	MaxBPM      float64
	Offset      time.Duration
	Calibrated  bool
	Calibrating bool
	Solo        string
	Instruments []string
	CursorIndex int
	SyncPoints  int
	Ticks       int64
	Position    time.Duration
	Measure     int
}

type positioner interface {
	Position() (float64, timeline.Measure, bool)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.state, Calibrating: s.calibrating}
	sg := s.song
	if sg == nil {
		return st
	}
	st.SongID = sg.meta.ID
	st.Title = sg.meta.Name
	if st.Title == "" {
		st.Title = sg.score.Title()
	}
	st.BPM = sg.tempo.Current()
	st.OriginalBPM = sg.tempo.Original()
	st.MinBPM, st.MaxBPM = sg.tempo.Range()
	st.Offset = sg.offset
	st.Calibrated = sg.calibrated
	st.Solo = sg.solo
	st.Instruments = append([]string(nil), sg.instruments...)
	st.CursorIndex = sg.cursor.Index()
	st.SyncPoints = len(sg.cursor.Points())
	st.Ticks = sg.clock.Ticks()
	st.Position = sg.tracks.TransportPosition()
	if p, ok := sg.score.Cursor().(positioner); ok && sg.cursor.Visible() {
		if _, m, ok := p.Position(); ok {
			st.Measure = m.Number
		}
	}
	return st
}

func (s *Session) State() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) CursorIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.song == nil {
		return 0
	}
	return s.song.cursor.Index()
}

// Ticks returns the transport position.
func (s *Session) Ticks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.song == nil {
		return 0
	}
	return s.song.clock.Ticks()
}

func (s *Session) String() string {
	st := s.Status()
	return fmt.Sprintf("%s [%s] %.1f bpm", st.SongID, st.State, st.BPM)
}
