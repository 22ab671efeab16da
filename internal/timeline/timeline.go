package timeline

import "math"

// SyncPoint pairs a score timestamp with the transport tick at which the
// cursor should reach it.
type SyncPoint struct {
	Timestamp float64
	Ticks     int64
}

// Ticks converts a measure timestamp to transport ticks under a single meter:
// timestamp × numerator × (4/denominator) × ppq.
func Ticks(timestamp float64, sig TimeSignature, ppq int) int64 {
	return int64(math.Round(timestamp * sig.QuartersPerMeasure() * float64(ppq)))
}

// tickMapper applies Ticks piecewise so that meter changes keep the tick axis
// continuous. With a single meter it is exactly Ticks.
type tickMapper struct {
	ppq      int
	started  bool
	sig      TimeSignature
	segStart float64
	segBase  float64
}

func (m *tickMapper) ticks(measure Measure, timestamp float64) int64 {
	start := measure.Start
	if measure.MeterStart > 0 {
		start = measure.MeterStart
	}
	if !m.started {
		m.started = true
		m.sig = measure.TimeSignature
	} else if measure.TimeSignature != m.sig && start > m.segStart {
		m.segBase += (start - m.segStart) * m.sig.QuartersPerMeasure() * float64(m.ppq)
		m.segStart = start
		m.sig = measure.TimeSignature
	}
	return int64(math.Round(m.segBase + (timestamp-m.segStart)*m.sig.QuartersPerMeasure()*float64(m.ppq)))
}

// Build walks the score and returns one SyncPoint per distinct timestamp at
// which at least one visible part has a note onset. The result is a fresh
// slice; callers replace their previous sequence with it.
func Build(score Score, ppq int) []SyncPoint {
	points := []SyncPoint{}
	if score == nil {
		return points
	}
	mapper := tickMapper{ppq: ppq}
	last := math.Inf(-1)
	for it := score.Iterator(); !it.EndReached(); it.Next() {
		ts := it.Timestamp()
		ticks := mapper.ticks(it.Measure(), ts)
		if ts <= last {
			continue
		}
		if !hasVisibleEntry(score, it.VoiceEntries()) {
			continue
		}
		if n := len(points); n > 0 && ticks < points[n-1].Ticks {
			ticks = points[n-1].Ticks
		}
		points = append(points, SyncPoint{Timestamp: ts, Ticks: ticks})
		last = ts
	}
	return points
}

func hasVisibleEntry(score Score, entries []VoiceEntry) bool {
	for _, e := range entries {
		if score.PartVisible(e.Part) {
			return true
		}
	}
	return false
}
