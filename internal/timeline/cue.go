package timeline

import (
	"fmt"
	"time"
)

// Cue is one subtitle entry placed on the output timeline.
type Cue struct {
	StartMs uint64
	EndMs   uint64
	Text    string
}

// length of the cue's slot, zero for inverted cues
func (c Cue) DurationMs() uint64 {
	if c.EndMs < c.StartMs {
		return 0
	}
	return c.EndMs - c.StartMs
}

func (c Cue) Start() time.Duration {
	return time.Duration(c.StartMs) * time.Millisecond
}

func (c Cue) End() time.Duration {
	return time.Duration(c.EndMs) * time.Millisecond
}

func (c Cue) String() string {
	return fmt.Sprintf("[%d-%d] %q", c.StartMs, c.EndMs, c.Text)
}

// where a cue's segment actually lands once the stitcher has run
type Placement struct {
	Index          int
	NominalStartMs uint64
	ActualStartMs  uint64
	DurationMs     uint64
	GapMs          uint64 // silence inserted before the segment
	DriftMs        uint64 // ActualStartMs - NominalStartMs
}

// Layout replays the stitcher's cursor arithmetic without audio. Overlapping
// cues are appended right after the previous segment, so their drift is
// reported here rather than corrected.
func Layout(cues []Cue) []Placement {
	placements := make([]Placement, 0, len(cues))
	var lastEnd, written uint64
	for i, cue := range cues {
		p := Placement{
			Index:          i,
			NominalStartMs: cue.StartMs,
			DurationMs:     cue.DurationMs(),
		}
		if cue.StartMs > lastEnd {
			p.GapMs = cue.StartMs - lastEnd
		}
		written += p.GapMs
		p.ActualStartMs = written
		if p.ActualStartMs > p.NominalStartMs {
			p.DriftMs = p.ActualStartMs - p.NominalStartMs
		}
		written += p.DurationMs
		lastEnd = cue.EndMs
		placements = append(placements, p)
	}
	return placements
}

// expected output length in milliseconds, including any drift
func TotalMs(cues []Cue) uint64 {
	placements := Layout(cues)
	if len(placements) == 0 {
		return 0
	}
	last := placements[len(placements)-1]
	return last.ActualStartMs + last.DurationMs
}
