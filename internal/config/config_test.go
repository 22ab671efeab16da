package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != *Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "countInBeats: 4\nhidePartsOnSolo: false\ncalibration:\n  timeout: 5s\nlogLevel: debug\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CountInBeats != 4 || cfg.HidePartsOnSolo {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Calibration.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", cfg.Calibration.Timeout)
	}
	if cfg.Calibration.WindowSize != 2048 || cfg.PPQ != 480 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Level() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", cfg.Level())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":     "ppq: [",
		"zero ppq":     "ppq: 0",
		"inverted":     "tempoMinFactor: 1.2\ntempoMaxFactor: 0.8",
		"bad level":    "logLevel: loud",
		"neg count-in": "countInBeats: -1",
	}
	for name, data := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.AssetsRoot = "/srv/playalong"
	cfg.TempoMaxFactor = 1.5
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("round trip:\n got %+v\nwant %+v", got, cfg)
	}
}
