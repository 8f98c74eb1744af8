package timeline

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatMismatch is returned when a clip's sample format differs from
	// the first clip of the run.
	ErrFormatMismatch = errors.New("clip format does not match timeline format")

	// ErrEmptyTimeline names the zero-cue case. Stitch never returns it; an
	// empty cue list yields an empty buffer and a nil error.
	ErrEmptyTimeline = errors.New("empty timeline")
)

// MalformedCueError reports input that cannot be stitched: a cue/clip count
// mismatch or a cue that ends before it starts.
type MalformedCueError struct {
	Index    int
	Expected int
	Actual   int
	Reason   string
}

func (e *MalformedCueError) Error() string {
	if e.Expected != e.Actual {
		return fmt.Sprintf(
			"malformed cue %d: %s (expected %d clips, got %d)",
			e.Index,
			e.Reason,
			e.Expected,
			e.Actual,
		)
	}
	return fmt.Sprintf("malformed cue %d: %s", e.Index, e.Reason)
}

// ClipUnavailableError names the cue whose clip never arrived.
type ClipUnavailableError struct {
	Index int
	Err   error
}

func (e *ClipUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("clip %d unavailable", e.Index)
	}
	return fmt.Sprintf("clip %d unavailable: %v", e.Index, e.Err)
}

func (e *ClipUnavailableError) Unwrap() error {
	return e.Err
}
