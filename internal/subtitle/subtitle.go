package subtitle

import (
	"fmt"
	"time"

	"github.com/mgpai22/dubline/internal/timeline"
)

// single subtitle entry
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
	Format   Format
}

// supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// transcribed audio segment
type Segment struct {
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// Cues converts entries to the stitcher's millisecond timeline. Negative
// timestamps clamp to zero; ordering is left as parsed.
func (s *Subtitle) Cues() []timeline.Cue {
	cues := make([]timeline.Cue, len(s.Entries))
	for i, e := range s.Entries {
		cues[i] = timeline.Cue{
			StartMs: toMs(e.StartTime),
			EndMs:   toMs(e.EndTime),
			Text:    e.Text,
		}
	}
	return cues
}

// replaces the text of entry i (0-based)
func (s *Subtitle) SetText(i int, text string) error {
	if i < 0 || i >= len(s.Entries) {
		return fmt.Errorf("index %d out of range (0-%d)", i, len(s.Entries)-1)
	}
	s.Entries[i].Text = text
	return nil
}

// texts in entry order
func (s *Subtitle) Texts() []string {
	texts := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		texts[i] = e.Text
	}
	return texts
}

func toMs(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}
