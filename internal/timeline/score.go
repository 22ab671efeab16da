package timeline

// TimeSignature is the meter active in a measure.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// QuartersPerMeasure returns how many quarter notes fit in one measure.
// Malformed signatures are treated as 4/4.
func (ts TimeSignature) QuartersPerMeasure() float64 {
	if ts.Numerator <= 0 || ts.Denominator <= 0 {
		return 4
	}
	return float64(ts.Numerator) * (4 / float64(ts.Denominator))
}

// Measure describes the measure an iterator position falls in. Start is the
// timestamp of the measure's first beat. MeterStart is the timestamp where
// TimeSignature took effect; scores that leave it zero are assumed to change
// meter at the first measure they report with a new signature.
type Measure struct {
	Number        int
	Start         float64
	MeterStart    float64
	TimeSignature TimeSignature
}

// VoiceEntry is a note onset at a score position. Part indexes into
// Score.Parts; it is a plain index rather than a pointer so entries never own
// the part they belong to.
type VoiceEntry struct {
	Part int
}

// Part is one instrument staff of the score.
type Part struct {
	ID   int
	Name string
}

// Iterator walks the score's note positions from start to end. Timestamps are
// real-valued measure positions.
type Iterator interface {
	EndReached() bool
	Timestamp() float64
	Measure() Measure
	VoiceEntries() []VoiceEntry
	Next()
}

// Cursor is the visual position marker drawn over the rendered score.
type Cursor interface {
	Show()
	Hide()
	Reset()
	Next()
}

// Score is a loaded, rendered score as exposed by the rendering layer.
type Score interface {
	Title() string
	// Tempo returns the first tempo marking in BPM, or 0 when the score has none.
	Tempo() float64
	Parts() []Part
	PartVisible(id int) bool
	SetPartVisible(id int, visible bool)
	Iterator() Iterator
	Cursor() Cursor
}
