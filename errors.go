package playalong

import (
	"errors"
	"fmt"
)

var (
	ErrNoSong                   = errors.New("playalong: no song loaded")
	ErrBusy                     = errors.New("playalong: calibration requires the session to be stopped")
	ErrInstrumentMappingMissing = errors.New("playalong: no track for instrument")
	ErrCalibrationUnsupported   = errors.New("playalong: main track cannot be analysed")
	ErrNegativeOffset           = errors.New("playalong: offset must not be negative")
	ErrClosed                   = errors.New("playalong: session closed")
)

// AssetKind names the asset that failed to load.
type AssetKind string

const (
	AssetScore AssetKind = "score"
	AssetAudio AssetKind = "audio"
)

// AssetLoadError reports a score or audio file that could not be loaded. The
// session keeps the previous song when it is returned.
type AssetLoadError struct {
	Kind AssetKind
	Name string
	URL  string
	Err  error
}

func (e *AssetLoadError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("playalong: load %s %q from %s: %v", e.Kind, e.Name, e.URL, e.Err)
	}
	return fmt.Sprintf("playalong: load %s from %s: %v", e.Kind, e.URL, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }
