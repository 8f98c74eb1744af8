package subtitle

import (
	"fmt"
	"strings"

	"github.com/mgpai22/dubline/internal/timeline"
)

// kind of timing problem found in a cue list
type IssueKind string

const (
	IssueInverted IssueKind = "inverted" // end before start
	IssueOverlap  IssueKind = "overlap"  // starts before the previous cue ends
	IssueEmpty    IssueKind = "empty"    // no text to speak
)

type Issue struct {
	Index int
	Kind  IssueKind
	Ms    uint64 // overlap length for IssueOverlap
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueOverlap:
		return fmt.Sprintf("cue %d overlaps the previous cue by %dms", i.Index+1, i.Ms)
	case IssueInverted:
		return fmt.Sprintf("cue %d ends before it starts", i.Index+1)
	default:
		return fmt.Sprintf("cue %d has no text", i.Index+1)
	}
}

// summary of a cue list before stitching
type Report struct {
	Cues       int
	SpeechMs   uint64 // sum of cue durations
	SilenceMs  uint64 // sum of gaps the stitcher will fill
	DriftMs    uint64 // how far the last cue lands past its nominal start
	TotalMs    uint64 // stitched output length
	Placements []timeline.Placement
	Issues     []Issue
}

// Analyze reports gaps, overlaps and inverted cues without stitching.
func Analyze(cues []timeline.Cue) Report {
	report := Report{
		Cues:       len(cues),
		Placements: timeline.Layout(cues),
		TotalMs:    timeline.TotalMs(cues),
	}

	var lastEnd uint64
	for i, cue := range cues {
		if cue.EndMs < cue.StartMs {
			report.Issues = append(report.Issues, Issue{Index: i, Kind: IssueInverted})
		}
		if i > 0 && cue.StartMs < lastEnd {
			report.Issues = append(report.Issues, Issue{
				Index: i,
				Kind:  IssueOverlap,
				Ms:    lastEnd - cue.StartMs,
			})
		}
		if strings.TrimSpace(cue.Text) == "" {
			report.Issues = append(report.Issues, Issue{Index: i, Kind: IssueEmpty})
		}
		lastEnd = cue.EndMs
	}

	for _, p := range report.Placements {
		report.SpeechMs += p.DurationMs
		report.SilenceMs += p.GapMs
	}
	if n := len(report.Placements); n > 0 {
		report.DriftMs = report.Placements[n-1].DriftMs
	}
	return report
}

// true when Stitch would reject the list
func (r Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Kind == IssueInverted {
			return true
		}
	}
	return false
}

