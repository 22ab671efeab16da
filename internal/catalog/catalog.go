// Package catalog describes the songs available to the player and builds the
// song list from an assets directory.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// MainInstrument is the instruments key of the full mix.
const MainInstrument = "Main"

// AssetsPrefix is the URL prefix asset references are written with.
const AssetsPrefix = "/assets/"

var ErrSongNotFound = errors.New("catalog: song not found")

// Song is the metadata of one play-along arrangement.
type Song struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Composer    string            `json:"composer,omitempty" yaml:"composer,omitempty"`
	Arranger    string            `json:"arranger,omitempty" yaml:"arranger,omitempty"`
	Style       string            `json:"style,omitempty" yaml:"style,omitempty"`
	Tempo       float64           `json:"tempo,omitempty" yaml:"tempo,omitempty"`
	MainAudio   string            `json:"mainAudio" yaml:"mainAudio"`
	SheetMusic  string            `json:"sheetMusic" yaml:"sheetMusic"`
	Instruments map[string]string `json:"instruments" yaml:"instruments"`
}

// Parts returns the solo-able instrument names, sorted.
func (s *Song) Parts() []string {
	var out []string
	for name := range s.Instruments {
		if name != MainInstrument {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Load reads a song list. Files ending in .yaml or .yml are YAML, anything
// else JSON.
func Load(path string) ([]Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var songs []Song
	if isYAML(path) {
		err = yaml.Unmarshal(data, &songs)
	} else {
		err = json.Unmarshal(data, &songs)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return songs, nil
}

// LoadSong reads a single song metadata file.
func LoadSong(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Song
	if isYAML(path) {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return &s, nil
}

// Find returns the song with the given id.
func Find(songs []Song, id string) (*Song, error) {
	for i := range songs {
		if songs[i].ID == id {
			return &songs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSongNotFound, id)
}

// Resolve maps an asset URL onto a file under root. URLs outside the assets
// prefix are taken relative to root unless absolute.
func Resolve(root, url string) string {
	if url == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(url, AssetsPrefix); ok {
		return filepath.Join(root, filepath.FromSlash(rest))
	}
	if filepath.IsAbs(url) || root == "" {
		return url
	}
	return filepath.Join(root, filepath.FromSlash(url))
}

// SortByName orders songs by name using locale-aware collation.
func SortByName(songs []Song) {
	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(songs, func(i, j int) bool {
		return c.CompareString(songs[i].Name, songs[j].Name) < 0
	})
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
