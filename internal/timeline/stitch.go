package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mgpai22/dubline/internal/audio"
)

// ClipSource hands out clips by cue index. Clip blocks until the clip for
// index is ready or ctx is done. A source may return a *ClipUnavailableError
// naming a different cue when that cue's failure is why index is missing.
type ClipSource interface {
	Clip(ctx context.Context, index int) (*audio.Buffer, error)
}

// adapts an in-memory clip list to ClipSource
type SliceSource []*audio.Buffer

func (s SliceSource) Clip(ctx context.Context, index int) (*audio.Buffer, error) {
	if index < 0 || index >= len(s) {
		return nil, fmt.Errorf("no clip at index %d", index)
	}
	if s[index] == nil {
		return nil, errors.New("clip is nil")
	}
	return s[index], nil
}

// Stitch lays clips[i] onto the slot of cues[i]. Gaps between cues become
// silence, long clips are cut to the slot and short clips are padded with
// trailing silence. Zero cues yield an empty buffer in the default format.
func Stitch(cues []Cue, clips []*audio.Buffer) (*audio.Buffer, error) {
	if len(cues) != len(clips) {
		index := len(cues)
		if len(clips) < index {
			index = len(clips)
		}
		return nil, &MalformedCueError{
			Index:    index,
			Expected: len(cues),
			Actual:   len(clips),
			Reason:   "cue and clip counts differ",
		}
	}
	if err := validateCues(cues); err != nil {
		return nil, err
	}

	b := &builder{}
	for i, cue := range cues {
		if clips[i] == nil {
			return nil, &ClipUnavailableError{Index: i, Err: errors.New("clip is nil")}
		}
		if err := b.add(i, cue, clips[i]); err != nil {
			return nil, err
		}
	}
	return b.result(), nil
}

// StitchFrom is Stitch over a ClipSource that may still be producing clips.
// Clips are requested strictly in index order; each request waits at most
// wait (no limit when wait is 0) on top of ctx.
func StitchFrom(
	ctx context.Context,
	cues []Cue,
	src ClipSource,
	wait time.Duration,
) (*audio.Buffer, error) {
	if err := validateCues(cues); err != nil {
		return nil, err
	}

	b := &builder{}
	for i, cue := range cues {
		clip, err := fetch(ctx, src, i, wait)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("stitch stopped at cue %d: %w", i, ctxErr)
			}
			var unavailable *ClipUnavailableError
			if errors.As(err, &unavailable) {
				return nil, unavailable
			}
			return nil, &ClipUnavailableError{Index: i, Err: err}
		}
		if clip == nil {
			return nil, &ClipUnavailableError{Index: i, Err: errors.New("clip is nil")}
		}
		if err := b.add(i, cue, clip); err != nil {
			return nil, err
		}
	}
	return b.result(), nil
}

func fetch(
	ctx context.Context,
	src ClipSource,
	index int,
	wait time.Duration,
) (*audio.Buffer, error) {
	if wait <= 0 {
		return src.Clip(ctx, index)
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return src.Clip(waitCtx, index)
}

func validateCues(cues []Cue) error {
	for i, cue := range cues {
		if cue.EndMs < cue.StartMs {
			return &MalformedCueError{
				Index:    i,
				Expected: len(cues),
				Actual:   len(cues),
				Reason: fmt.Sprintf(
					"end %dms is before start %dms",
					cue.EndMs,
					cue.StartMs,
				),
			}
		}
	}
	return nil
}

// builder owns the output buffer and the lastEndMs cursor for one run.
type builder struct {
	out       *audio.Buffer
	format    audio.Format
	lastEndMs uint64
}

func (b *builder) add(index int, cue Cue, clip *audio.Buffer) error {
	if b.out == nil {
		b.format = clip.Format()
		b.out = audio.Empty(b.format)
	}
	if clip.Format() != b.format {
		return fmt.Errorf(
			"%w: cue %d is %s, timeline is %s",
			ErrFormatMismatch,
			index,
			clip.Format(),
			b.format,
		)
	}

	// positions are absolute so per-cue rounding does not accumulate
	if cue.StartMs > b.lastEndMs {
		b.out.AppendSilenceFrames(
			b.format.FramesFor(cue.StartMs) - b.format.FramesFor(b.lastEndMs),
		)
	}

	slot := b.format.FramesFor(cue.EndMs) - b.format.FramesFor(cue.StartMs)
	if clip.Frames() >= slot {
		if err := b.out.Append(clip.Prefix(slot)); err != nil {
			return err
		}
	} else {
		if err := b.out.Append(clip); err != nil {
			return err
		}
		b.out.AppendSilenceFrames(slot - clip.Frames())
	}

	b.lastEndMs = cue.EndMs
	return nil
}

func (b *builder) result() *audio.Buffer {
	if b.out == nil {
		return audio.Empty(audio.DefaultFormat())
	}
	return b.out
}
