package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultOutput is the compiled song list file name.
const DefaultOutput = "songs-data.json"

var (
	mainAudioRe = regexp.MustCompile(`^(.*)_EsQ\.mp3$`)
	playalongRe = regexp.MustCompile(`^(.*)_playalong_([a-z0-9]+)\.mp3$`)
	scoreRe     = regexp.MustCompile(`^(.*)_sax_quartet_(SATB|AATB)\.(mxl|mid|midi)$`)
	letterDigit = regexp.MustCompile(`([a-z])([0-9])`)
)

// scoreSuffixes lists score files in order of preference. MIDI comes first
// because it is the format the player can read.
var scoreSuffixes = []string{
	"_sax_quartet_SATB.mid",
	"_sax_quartet_AATB.mid",
	"_sax_quartet_SATB.midi",
	"_sax_quartet_AATB.midi",
	"_sax_quartet_SATB.mxl",
	"_sax_quartet_AATB.mxl",
}

func title(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

// FormatName turns a file base name such as "take_five" into "Take Five".
func FormatName(base string) string {
	return title(strings.ReplaceAll(base, "_", " "))
}

// FormatPart turns a play-along suffix such as "alto2" into "Alto 2".
func FormatPart(raw string) string {
	return title(letterDigit.ReplaceAllString(raw, "$1 $2"))
}

// Discover returns the sorted song base names found among file names.
func Discover(files []string) []string {
	seen := map[string]bool{}
	for _, f := range files {
		var base string
		if m := mainAudioRe.FindStringSubmatch(f); m != nil {
			base = m[1]
		} else if m := playalongRe.FindStringSubmatch(f); m != nil {
			base = m[1]
		} else if m := scoreRe.FindStringSubmatch(f); m != nil {
			base = m[1]
		}
		if base != "" {
			seen[base] = true
		}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Gather builds the skeleton metadata of base from the asset file names.
func Gather(base string, files []string) Song {
	have := map[string]bool{}
	for _, f := range files {
		have[f] = true
	}
	s := Song{ID: base, Name: FormatName(base), Instruments: map[string]string{}}
	if main := base + "_EsQ.mp3"; have[main] {
		s.MainAudio = AssetsPrefix + main
		s.Instruments[MainInstrument] = s.MainAudio
	}
	prefix := base + "_playalong_"
	for _, f := range files {
		rest, ok := strings.CutPrefix(f, prefix)
		if !ok {
			continue
		}
		raw, ok := strings.CutSuffix(rest, ".mp3")
		if !ok || !isPartSuffix(raw) {
			continue
		}
		s.Instruments[FormatPart(raw)] = AssetsPrefix + f
	}
	for _, suffix := range scoreSuffixes {
		if have[base+suffix] {
			s.SheetMusic = AssetsPrefix + base + suffix
			break
		}
	}
	return s
}

func isPartSuffix(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Seed writes a <base>.json skeleton for every discovered song that has no
// metadata file yet. Existing files are never overwritten.
func Seed(dir string, log logrus.FieldLogger) ([]string, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}
	have := map[string]bool{}
	for _, f := range files {
		have[f] = true
	}
	var created []string
	for _, base := range Discover(files) {
		if have[base+".json"] || have[base+".yaml"] || have[base+".yml"] {
			continue
		}
		song := Gather(base, files)
		data, err := json.MarshalIndent(song, "", "  ")
		if err != nil {
			return created, err
		}
		path := filepath.Join(dir, base+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return created, err
		}
		log.WithField("song", base).Info("created skeleton metadata")
		created = append(created, path)
	}
	return created, nil
}

// Compile reads every metadata file in dir and writes the name-sorted list to
// out. Unreadable files are logged and skipped.
func Compile(dir, out string, log logrus.FieldLogger) ([]Song, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}
	outName := filepath.Base(out)
	songs := []Song{}
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		if f == outName || (ext != ".json" && !isYAML(f)) {
			continue
		}
		s, err := LoadSong(filepath.Join(dir, f))
		if err != nil {
			log.WithError(err).WithField("file", f).Error("skipping metadata file")
			continue
		}
		if s.ID == "" {
			log.WithField("file", f).Warn("skipping metadata file without id")
			continue
		}
		songs = append(songs, *s)
	}
	SortByName(songs)
	data, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return nil, fmt.Errorf("catalog: write %s: %w", out, err)
	}
	return songs, nil
}

// Rebuild seeds missing metadata and compiles the song list in one go.
func Rebuild(dir, out string, log logrus.FieldLogger) ([]Song, error) {
	if _, err := Seed(dir, log); err != nil {
		return nil, fmt.Errorf("catalog: seed: %w", err)
	}
	return Compile(dir, out, log)
}
