package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mgpai22/dubline/internal/audio"
	"github.com/mgpai22/dubline/internal/logging"
	"github.com/mgpai22/dubline/internal/timeline"
)

const DefaultWorkers = 3

var errQueueClosed = errors.New("clip queue closed")

// acquisition settings
type AcquireOptions struct {
	Workers int          // concurrent synthesis requests, DefaultWorkers when <= 0
	Format  audio.Format // format of silent clips for empty cue text
	Synth   Options
	Logger  *logging.Logger
}

// Queue holds clips as workers finish them, in any order, and hands them
// out by index. It implements timeline.ClipSource.
type Queue struct {
	slots  []slot
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup
}

type slot struct {
	done chan struct{}
	clip *audio.Buffer
	err  error
}

var _ timeline.ClipSource = (*Queue)(nil)

// Acquire starts synthesizing every cue in the background. Cues are picked
// up in index order so the earliest clips tend to finish first. The first
// failure cancels all remaining work, and every unfinished slot then reports
// a *timeline.ClipUnavailableError naming the failed cue. Close stops
// everything.
func Acquire(
	ctx context.Context,
	synthesizer Synthesizer,
	decoder audio.Decoder,
	cues []timeline.Cue,
	opts AcquireOptions,
) *Queue {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(cues) {
		workers = len(cues)
	}
	if opts.Format == (audio.Format{}) {
		opts.Format = audio.DefaultFormat()
	}
	logger := logging.OrNop(opts.Logger)

	ctx, cancel := context.WithCancelCause(ctx)
	q := &Queue{
		slots:  make([]slot, len(cues)),
		cancel: cancel,
	}
	for i := range q.slots {
		q.slots[i].done = make(chan struct{})
	}

	workChan := make(chan int, len(cues))
	for i := range cues {
		workChan <- i
	}
	close(workChan)

	for w := 0; w < workers; w++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for i := range workChan {
				if ctx.Err() != nil {
					q.finish(i, nil, context.Cause(ctx))
					continue
				}

				start := time.Now()
				clip, err := acquireOne(ctx, synthesizer, decoder, cues[i].Text, opts)
				if err != nil {
					if ctx.Err() != nil {
						err = context.Cause(ctx)
					} else {
						// slots cancelled by this failure report cue i, not themselves
						err = &timeline.ClipUnavailableError{Index: i, Err: err}
						cancel(err)
					}
					q.finish(i, nil, err)
					continue
				}

				logger.Debugw("Clip ready",
					"index", i,
					"duration_ms", clip.DurationMs(),
					"elapsed", time.Since(start).Round(time.Millisecond),
				)
				q.finish(i, clip, nil)
			}
		}()
	}

	return q
}

func acquireOne(
	ctx context.Context,
	synthesizer Synthesizer,
	decoder audio.Decoder,
	text string,
	opts AcquireOptions,
) (*audio.Buffer, error) {
	// the stitcher pads an empty clip to the cue's slot
	if strings.TrimSpace(text) == "" {
		return audio.Empty(opts.Format), nil
	}

	res, err := synthesizer.Synthesize(ctx, text, opts.Synth)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	clip, err := decoder.Decode(ctx, res.Audio, res.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode clip: %w", err)
	}
	return clip, nil
}

func (q *Queue) finish(index int, clip *audio.Buffer, err error) {
	s := &q.slots[index]
	s.clip = clip
	s.err = err
	close(s.done)
}

// Clip blocks until clip index is finished or ctx is done.
func (q *Queue) Clip(ctx context.Context, index int) (*audio.Buffer, error) {
	if index < 0 || index >= len(q.slots) {
		return nil, fmt.Errorf("no clip at index %d", index)
	}
	s := &q.slots[index]
	select {
	case <-s.done:
		return s.clip, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) Len() int {
	return len(q.slots)
}

// Close cancels outstanding work and waits for the workers to exit.
func (q *Queue) Close() {
	q.cancel(errQueueClosed)
	q.wg.Wait()
}
