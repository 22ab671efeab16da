package playalong

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cbegin/playalong-go/internal/timeline"
)

// voiceRank orders instruments from the top voice down.
func voiceRank(name string) int {
	first := ""
	if f := tokens(name); len(f) > 0 {
		first = f[0]
	}
	switch {
	case strings.HasPrefix(first, "sop"):
		return 0
	case strings.HasPrefix(first, "alt"):
		return 1
	case strings.HasPrefix(first, "ten"):
		return 2
	case strings.HasPrefix(first, "bari"):
		return 3
	case strings.HasPrefix(first, "bass"):
		return 4
	}
	return 5
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matches reports whether every word of the track name starts a word of the
// part name, so "Bari" matches "Baritone Sax" and "Alto 2" matches
// "Alto Sax 2".
func matches(track, part string) bool {
	tt := tokens(track)
	if len(tt) == 0 {
		return false
	}
	pt := tokens(part)
	for _, t := range tt {
		found := false
		for _, p := range pt {
			if strings.HasPrefix(p, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// mapInstruments assigns each instrument track a score part. Tracks with the
// most specific names claim matching parts first; the remaining tracks take
// the remaining parts in score order, top voice first.
func mapInstruments(trackNames []string, parts []timeline.Part) map[string]int {
	names := append([]string(nil), trackNames...)
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := voiceRank(names[i]), voiceRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	bySpecificity := append([]string(nil), names...)
	sort.SliceStable(bySpecificity, func(i, j int) bool {
		return len(tokens(bySpecificity[i])) > len(tokens(bySpecificity[j]))
	})

	out := map[string]int{}
	taken := map[int]bool{}
	for _, name := range bySpecificity {
		for _, p := range parts {
			if !taken[p.ID] && matches(name, p.Name) {
				out[name] = p.ID
				taken[p.ID] = true
				break
			}
		}
	}
	next := 0
	for _, name := range names {
		if _, ok := out[name]; ok {
			continue
		}
		for next < len(parts) && taken[parts[next].ID] {
			next++
		}
		if next == len(parts) {
			break
		}
		out[name] = parts[next].ID
		taken[parts[next].ID] = true
	}
	return out
}
