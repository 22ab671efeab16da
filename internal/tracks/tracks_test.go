package tracks

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cbegin/playalong-go/internal/tracks/trackstest"
	"github.com/cbegin/playalong-go/internal/transport"
)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time { return f.t }

func newSet(t *testing.T) (*Set, *transport.Clock, *fakeTime, map[string]*trackstest.Source, *[]string) {
	t.Helper()
	ft := &fakeTime{t: time.Unix(0, 0)}
	clock, err := transport.New(480, 120, transport.WithNow(ft.now))
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	log := &[]string{}
	set := New(clock, 120)
	srcs := map[string]*trackstest.Source{}
	for _, name := range []string{Main, "Alto", "Tenor"} {
		src := trackstest.New(name, log)
		srcs[name] = src
		if err := set.Add(name, src); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	return set, clock, ft, srcs, log
}

func TestMainAudibleByDefault(t *testing.T) {
	set, _, _, srcs, _ := newSet(t)
	if set.Audible() != Main {
		t.Fatalf("audible = %q, want Main", set.Audible())
	}
	if srcs[Main].Muted() || !srcs["Alto"].Muted() || !srcs["Tenor"].Muted() {
		t.Fatalf("unexpected mute state")
	}
	if err := set.Add("Alto", trackstest.New("Alto", nil)); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestSetAudibleExactlyOne(t *testing.T) {
	set, _, _, srcs, _ := newSet(t)
	if err := set.SetAudible("Alto"); err != nil {
		t.Fatalf("set audible: %v", err)
	}
	audible := 0
	for name, src := range srcs {
		if !src.Muted() {
			audible++
			if name != "Alto" {
				t.Fatalf("%s audible, want Alto", name)
			}
		}
	}
	if audible != 1 {
		t.Fatalf("audible tracks = %d, want 1", audible)
	}
	if err := set.SetAudible(""); err != nil {
		t.Fatalf("restore main: %v", err)
	}
	if srcs[Main].Muted() || !srcs["Alto"].Muted() {
		t.Fatalf("main mix not restored")
	}
}

func TestSetAudibleUnknown(t *testing.T) {
	set, _, _, srcs, _ := newSet(t)
	err := set.SetAudible("Bari")
	if !errors.Is(err, ErrUnknownTrack) {
		t.Fatalf("err = %v, want ErrUnknownTrack", err)
	}
	if set.Audible() != Main || srcs[Main].Muted() {
		t.Fatalf("audible set changed on failure")
	}
}

func TestSwapWhilePlayingOrdersPauseSeekResume(t *testing.T) {
	set, clock, ft, _, log := newSet(t)
	set.SetOffset(500 * time.Millisecond)
	clock.Start(0)
	if err := set.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ft.t = ft.t.Add(2 * time.Second)
	ticksBefore := clock.Ticks()
	*log = (*log)[:0]

	if err := set.SetAudible("Tenor"); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if got := clock.Ticks(); got != ticksBefore {
		t.Fatalf("ticks changed across swap: %d -> %d", ticksBefore, got)
	}
	want := []string{
		"Main pause", "Alto pause", "Tenor pause",
		"Main seek 2.5s", "Alto seek 2.5s", "Tenor seek 2.5s",
		"Main play", "Alto play", "Tenor play",
	}
	if strings.Join(*log, "|") != strings.Join(want, "|") {
		t.Fatalf("call order:\n got %v\nwant %v", *log, want)
	}
}

func TestPlaybackRateUniform(t *testing.T) {
	set, _, _, srcs, _ := newSet(t)
	if err := set.SetPlaybackRate(0.8); err != nil {
		t.Fatalf("rate: %v", err)
	}
	for name, src := range srcs {
		if src.Rate() != 0.8 {
			t.Fatalf("%s rate = %v, want 0.8", name, src.Rate())
		}
	}
	if err := set.SetPlaybackRate(0); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("err = %v, want ErrInvalidRate", err)
	}
	late := trackstest.New("Bari", nil)
	if err := set.Add("Bari", late); err != nil {
		t.Fatalf("add: %v", err)
	}
	if late.Rate() != 0.8 {
		t.Fatalf("late track rate = %v, want 0.8", late.Rate())
	}
}

func TestTransportPositionIgnoresTempo(t *testing.T) {
	set, clock, ft, _, _ := newSet(t)
	if err := clock.SetBPM(60); err != nil {
		t.Fatalf("bpm: %v", err)
	}
	clock.Start(0)
	ft.t = ft.t.Add(2 * time.Second)
	// 2s at 60 bpm is 960 ticks, which is 1s of audio written at 120 bpm
	if got := set.TransportPosition(); got != time.Second {
		t.Fatalf("position = %v, want 1s", got)
	}
}

func TestStopAndDispose(t *testing.T) {
	set, clock, _, srcs, _ := newSet(t)
	clock.Start(0)
	if err := set.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := set.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	for name, src := range srcs {
		if src.Playing() || src.Position() != 0 {
			t.Fatalf("%s still playing or not rewound", name)
		}
	}
	if err := set.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	for name, src := range srcs {
		if !src.Closed() {
			t.Fatalf("%s not closed", name)
		}
	}
	if set.Len() != 0 {
		t.Fatalf("len after dispose = %d", set.Len())
	}
}

func TestEndedFollowsAudibleTrack(t *testing.T) {
	set, _, _, srcs, _ := newSet(t)
	srcs["Alto"].Length = time.Second
	srcs["Alto"].Play()
	srcs["Alto"].Advance(2 * time.Second)
	if set.Ended() {
		t.Fatalf("ended while main is audible")
	}
	if err := set.SetAudible("Alto"); err != nil {
		t.Fatalf("solo: %v", err)
	}
	if !set.Ended() {
		t.Fatalf("expected ended once Alto is audible")
	}
}
