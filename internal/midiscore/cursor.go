package midiscore

import "github.com/cbegin/playalong-go/internal/timeline"

// Cursor walks the positions that have a note in at least one visible part,
// matching the sync points built from the same score.
type Cursor struct {
	score   *Score
	idx     int
	visible bool
}

func (c *Cursor) Show() { c.visible = true }
func (c *Cursor) Hide() { c.visible = false }

// Reset moves to the first visible position.
func (c *Cursor) Reset() {
	c.idx = c.seek(0)
}

// Next moves to the following visible position, or past the end.
func (c *Cursor) Next() {
	if c.idx < len(c.score.positions) {
		c.idx = c.seek(c.idx + 1)
	}
}

func (c *Cursor) seek(from int) int {
	for i := from; i < len(c.score.positions); i++ {
		if c.score.anyVisible(c.score.positions[i]) {
			return i
		}
	}
	return len(c.score.positions)
}

func (c *Cursor) Visible() bool { return c.visible }

// EndReached reports that the cursor has moved past the last position.
func (c *Cursor) EndReached() bool { return c.idx >= len(c.score.positions) }

// Position returns the timestamp and measure under the cursor.
func (c *Cursor) Position() (float64, timeline.Measure, bool) {
	if c.EndReached() {
		return 0, timeline.Measure{}, false
	}
	p := c.score.positions[c.idx]
	return p.timestamp, p.measure, true
}

// Parts returns the names of the visible parts with a note under the cursor.
func (c *Cursor) Parts() []string {
	if c.EndReached() {
		return nil
	}
	var out []string
	for _, id := range c.score.positions[c.idx].parts {
		if c.score.PartVisible(id) {
			out = append(out, c.score.parts[id].Name)
		}
	}
	return out
}
