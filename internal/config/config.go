// Package config loads the player settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Calibration tunes the start-offset detector.
type Calibration struct {
	Threshold  float64       `yaml:"threshold"`
	Timeout    time.Duration `yaml:"timeout"`
	WindowSize int           `yaml:"windowSize"`
}

type Config struct {
	PPQ            int     `yaml:"ppq"`
	RefreshRate    int     `yaml:"refreshRate"`
	SampleRate     int     `yaml:"sampleRate"`
	DefaultTempo   float64 `yaml:"defaultTempo"`
	TempoMinFactor float64 `yaml:"tempoMinFactor"`
	TempoMaxFactor float64 `yaml:"tempoMaxFactor"`
	// CountInBeats clicks this many beats before playback starts. 0 disables
	// the count-in.
	CountInBeats int `yaml:"countInBeats"`
	// HidePartsOnSolo hides the soloed instrument's part so the cursor only
	// stops on notes the player does not play.
	HidePartsOnSolo bool        `yaml:"hidePartsOnSolo"`
	Calibration     Calibration `yaml:"calibration"`
	AssetsRoot      string      `yaml:"assetsRoot,omitempty"`
	SongsData       string      `yaml:"songsData,omitempty"`
	LogLevel        string      `yaml:"logLevel"`
}

func Default() *Config {
	return &Config{
		PPQ:             480,
		RefreshRate:     60,
		SampleRate:      44100,
		DefaultTempo:    120,
		TempoMinFactor:  0.66,
		TempoMaxFactor:  1.15,
		CountInBeats:    0,
		HidePartsOnSolo: true,
		Calibration: Calibration{
			Threshold:  10.0 / 128.0,
			Timeout:    15 * time.Second,
			WindowSize: 2048,
		},
		LogLevel: "info",
	}
}

// Dir returns the per-user config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "playalong"), nil
}

// DefaultPath returns the path of config.yaml in Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.PPQ <= 0 {
		errs = append(errs, fmt.Errorf("ppq must be positive, got %d", c.PPQ))
	}
	if c.RefreshRate <= 0 {
		errs = append(errs, fmt.Errorf("refreshRate must be positive, got %d", c.RefreshRate))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sampleRate must be positive, got %d", c.SampleRate))
	}
	if !(c.DefaultTempo > 0) {
		errs = append(errs, fmt.Errorf("defaultTempo must be positive, got %v", c.DefaultTempo))
	}
	if !(c.TempoMinFactor > 0) || c.TempoMaxFactor < c.TempoMinFactor {
		errs = append(errs, fmt.Errorf("tempo factors %v..%v are not a range", c.TempoMinFactor, c.TempoMaxFactor))
	}
	if c.CountInBeats < 0 {
		errs = append(errs, fmt.Errorf("countInBeats must not be negative, got %d", c.CountInBeats))
	}
	if !(c.Calibration.Threshold > 0) {
		errs = append(errs, fmt.Errorf("calibration.threshold must be positive, got %v", c.Calibration.Threshold))
	}
	if c.Calibration.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("calibration.timeout must be positive, got %v", c.Calibration.Timeout))
	}
	if c.Calibration.WindowSize <= 0 {
		errs = append(errs, fmt.Errorf("calibration.windowSize must be positive, got %d", c.Calibration.WindowSize))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
