package playalong

import (
	"reflect"
	"testing"

	"github.com/cbegin/playalong-go/internal/timeline"
)

func parts(names ...string) []timeline.Part {
	out := make([]timeline.Part, len(names))
	for i, n := range names {
		out[i] = timeline.Part{ID: i, Name: n}
	}
	return out
}

func TestMapInstruments(t *testing.T) {
	cases := []struct {
		name   string
		tracks []string
		parts  []timeline.Part
		want   map[string]int
	}{
		{
			name:   "by name",
			tracks: []string{"Tenor", "Alto", "Bari", "Soprano"},
			parts:  parts("Soprano Sax", "Alto Sax", "Tenor Sax", "Baritone Sax"),
			want:   map[string]int{"Soprano": 0, "Alto": 1, "Tenor": 2, "Bari": 3},
		},
		{
			name:   "numbered altos",
			tracks: []string{"Alto", "Alto 2", "Tenor", "Bari"},
			parts:  parts("Alto Sax 1", "Alto Sax 2", "Tenor Sax", "Bari Sax"),
			want:   map[string]int{"Alto": 0, "Alto 2": 1, "Tenor": 2, "Bari": 3},
		},
		{
			name:   "generic part names fall back to voice order",
			tracks: []string{"Bari", "Alto", "Soprano", "Tenor"},
			parts:  parts("Part 1", "Part 2", "Part 3", "Part 4"),
			want:   map[string]int{"Soprano": 0, "Alto": 1, "Tenor": 2, "Bari": 3},
		},
		{
			name:   "more tracks than parts",
			tracks: []string{"Alto", "Tenor", "Guitar"},
			parts:  parts("Staff"),
			want:   map[string]int{"Alto": 0},
		},
	}
	for _, tc := range cases {
		got := mapInstruments(tc.tracks, tc.parts)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
