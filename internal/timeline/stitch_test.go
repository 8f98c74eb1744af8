package timeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mgpai22/dubline/internal/audio"
)

var mono24k = audio.Format{SampleRate: 24000, Channels: 1, BitDepth: 16}

// clip of ms milliseconds with no zero bytes, so silence is easy to tell apart
func tone(t *testing.T, format audio.Format, ms uint64, seed byte) *audio.Buffer {
	t.Helper()
	n := format.FramesFor(ms) * format.FrameSize()
	pcm := make([]byte, n)
	for i := range pcm {
		pcm[i] = byte(i%250) + 1 + seed%5
	}
	buf, err := audio.NewBuffer(format, pcm)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	return buf
}

func frameRange(buf *audio.Buffer, fromMs, toMs uint64) *audio.Buffer {
	f := buf.Format()
	return buf.Slice(f.FramesFor(fromMs), f.FramesFor(toMs))
}

func TestStitchWorkedExample(t *testing.T) {
	cues := []Cue{
		{StartMs: 0, EndMs: 1000, Text: "a"},
		{StartMs: 1500, EndMs: 2000, Text: "b"},
	}
	clipA := tone(t, mono24k, 800, 1)
	clipB := tone(t, mono24k, 700, 2)

	out, err := Stitch(cues, []*audio.Buffer{clipA, clipB})
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}

	if got := out.DurationMs(); got != 2000 {
		t.Fatalf("duration = %dms, want 2000", got)
	}
	if !bytes.Equal(frameRange(out, 0, 800).Bytes(), clipA.Bytes()) {
		t.Error("[0,800) should be clip a")
	}
	if !out.IsSilent(mono24k.FramesFor(800), mono24k.FramesFor(1500)) {
		t.Error("[800,1500) should be silence (padding then gap)")
	}
	wantB := clipB.Prefix(mono24k.FramesFor(500))
	if !bytes.Equal(frameRange(out, 1500, 2000).Bytes(), wantB.Bytes()) {
		t.Error("[1500,2000) should be the first 500ms of clip b")
	}
}

func TestStitchDurationExactness(t *testing.T) {
	cues := []Cue{
		{StartMs: 120, EndMs: 930},
		{StartMs: 930, EndMs: 1777},
		{StartMs: 2001, EndMs: 2003},
		{StartMs: 5000, EndMs: 7321},
	}
	clipMs := []uint64{500, 2000, 0, 2321}

	rates := []int{8000, 16000, 22050, 24000, 44100, 48000}
	for _, rate := range rates {
		format := audio.Format{SampleRate: rate, Channels: 2, BitDepth: 16}
		clips := make([]*audio.Buffer, len(cues))
		for i, ms := range clipMs {
			clips[i] = tone(t, format, ms, byte(i))
		}

		out, err := Stitch(cues, clips)
		if err != nil {
			t.Fatalf("%d Hz: Stitch: %v", rate, err)
		}
		last := cues[len(cues)-1].EndMs
		if out.Frames() != format.FramesFor(last) {
			t.Errorf("%d Hz: frames = %d, want %d", rate, out.Frames(), format.FramesFor(last))
		}
		if out.DurationMs() != last {
			t.Errorf("%d Hz: duration = %dms, want %dms", rate, out.DurationMs(), last)
		}
	}
}

func TestStitchSegmentFit(t *testing.T) {
	format := mono24k
	tests := []struct {
		name   string
		clipMs uint64
		cue    Cue
	}{
		{"truncate", 1200, Cue{StartMs: 300, EndMs: 1000}},
		{"pad", 250, Cue{StartMs: 300, EndMs: 1000}},
		{"exact", 700, Cue{StartMs: 300, EndMs: 1000}},
		{"empty clip", 0, Cue{StartMs: 300, EndMs: 1000}},
		{"zero length cue", 400, Cue{StartMs: 1000, EndMs: 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := tone(t, format, tt.clipMs, 3)
			before := clip.Bytes()

			out, err := Stitch([]Cue{tt.cue}, []*audio.Buffer{clip})
			if err != nil {
				t.Fatalf("Stitch: %v", err)
			}

			seg := frameRange(out, tt.cue.StartMs, tt.cue.EndMs)
			slot := format.FramesFor(tt.cue.EndMs) - format.FramesFor(tt.cue.StartMs)
			if seg.Frames() != slot {
				t.Fatalf("segment frames = %d, want %d", seg.Frames(), slot)
			}
			if seg.DurationMs() != tt.cue.DurationMs() {
				t.Errorf("segment duration = %dms, want %dms", seg.DurationMs(), tt.cue.DurationMs())
			}

			used := clip.Frames()
			if used > slot {
				used = slot
			}
			if !bytes.Equal(seg.Prefix(used).Bytes(), clip.Prefix(used).Bytes()) {
				t.Error("segment should start with the clip")
			}
			if !seg.IsSilent(used, slot) {
				t.Error("padding after the clip should be silent")
			}
			if !out.IsSilent(0, format.FramesFor(tt.cue.StartMs)) {
				t.Error("lead-in gap should be silent")
			}
			if !bytes.Equal(clip.Bytes(), before) {
				t.Error("Stitch must not modify its input clips")
			}
		})
	}
}

func TestStitchGapSilence(t *testing.T) {
	format := audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 24}
	cues := []Cue{
		{StartMs: 0, EndMs: 400},
		{StartMs: 1150, EndMs: 1500},
	}
	clips := []*audio.Buffer{tone(t, format, 400, 1), tone(t, format, 350, 2)}

	out, err := Stitch(cues, clips)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}

	gap := frameRange(out, 400, 1150)
	if gap.DurationMs() != 750 {
		t.Errorf("gap = %dms, want 750", gap.DurationMs())
	}
	if !gap.IsSilent(0, gap.Frames()) {
		t.Error("gap should be zero amplitude")
	}
	if out.IsSilent(format.FramesFor(1150), format.FramesFor(1151)) {
		t.Error("second clip should start right after the gap")
	}
}

func TestStitchIdempotent(t *testing.T) {
	cues := []Cue{
		{StartMs: 10, EndMs: 510},
		{StartMs: 300, EndMs: 900},
		{StartMs: 1900, EndMs: 2500},
	}
	clips := []*audio.Buffer{
		tone(t, mono24k, 700, 1),
		tone(t, mono24k, 100, 2),
		tone(t, mono24k, 600, 3),
	}

	first, err := Stitch(cues, clips)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	second, err := Stitch(cues, clips)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("identical inputs produced different output")
	}
}

func TestStitchZeroCues(t *testing.T) {
	out, err := Stitch(nil, nil)
	if err != nil {
		t.Fatalf("Stitch(nil, nil) err = %v", err)
	}
	if out == nil || out.DurationMs() != 0 || out.Len() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", out.Len())
	}

	out, err = StitchFrom(context.Background(), []Cue{}, SliceSource{}, 0)
	if err != nil || out.Frames() != 0 {
		t.Errorf("StitchFrom with no cues: frames=%d err=%v", out.Frames(), err)
	}
}

func TestStitchCountMismatch(t *testing.T) {
	cues := []Cue{{StartMs: 0, EndMs: 100}, {StartMs: 100, EndMs: 200}}
	clips := []*audio.Buffer{tone(t, mono24k, 100, 0)}

	out, err := Stitch(cues, clips)
	if out != nil {
		t.Error("no partial buffer should be returned")
	}
	var malformed *MalformedCueError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want *MalformedCueError", err)
	}
	if malformed.Expected != 2 || malformed.Actual != 1 || malformed.Index != 1 {
		t.Errorf("unexpected error fields: %+v", malformed)
	}
}

func TestStitchInvertedCue(t *testing.T) {
	cues := []Cue{{StartMs: 0, EndMs: 100}, {StartMs: 500, EndMs: 200}}
	clips := []*audio.Buffer{tone(t, mono24k, 100, 0), tone(t, mono24k, 100, 0)}

	out, err := Stitch(cues, clips)
	if out != nil {
		t.Error("no partial buffer should be returned")
	}
	var malformed *MalformedCueError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want *MalformedCueError", err)
	}
	if malformed.Index != 1 {
		t.Errorf("Index = %d, want 1", malformed.Index)
	}
}

// Overlapping cues are appended after the previous segment instead of at
// their nominal start, so the output runs long.
func TestStitchOverlapDrifts(t *testing.T) {
	format := audio.Format{SampleRate: 1000, Channels: 1, BitDepth: 16}
	cues := []Cue{
		{StartMs: 0, EndMs: 1000},
		{StartMs: 500, EndMs: 1500},
		{StartMs: 1500, EndMs: 2000},
	}
	clips := []*audio.Buffer{
		tone(t, format, 1000, 1),
		tone(t, format, 1000, 2),
		tone(t, format, 500, 3),
	}

	out, err := Stitch(cues, clips)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}

	if got := out.DurationMs(); got != 2500 {
		t.Fatalf("duration = %dms, want 2500 (500ms of drift)", got)
	}
	if !bytes.Equal(out.Slice(1000, 2000).Bytes(), clips[1].Bytes()) {
		t.Error("overlapping cue should be appended at 1000ms, not at its 500ms start")
	}
	// cursor sits at 1500 after cue 1, so cue 2 gets no gap and inherits the drift
	if !bytes.Equal(out.Slice(2000, 2500).Bytes(), clips[2].Bytes()) {
		t.Error("following cue should carry the drift forward")
	}

	placements := Layout(cues)
	if placements[1].DriftMs != 500 || placements[2].DriftMs != 500 {
		t.Errorf("Layout drift = %d, %d, want 500, 500", placements[1].DriftMs, placements[2].DriftMs)
	}
	if TotalMs(cues) != out.DurationMs() {
		t.Errorf("TotalMs = %d, stitched = %d", TotalMs(cues), out.DurationMs())
	}
}

func TestStitchFormatMismatch(t *testing.T) {
	other := audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 16}
	cues := []Cue{{StartMs: 0, EndMs: 100}, {StartMs: 100, EndMs: 200}}
	clips := []*audio.Buffer{tone(t, mono24k, 100, 0), tone(t, other, 100, 0)}

	out, err := Stitch(cues, clips)
	if !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("err = %v, want ErrFormatMismatch", err)
	}
	if out != nil {
		t.Error("no partial buffer should be returned")
	}
}

func TestStitchNilClip(t *testing.T) {
	cues := []Cue{{StartMs: 0, EndMs: 100}}
	_, err := Stitch(cues, []*audio.Buffer{nil})
	var unavailable *ClipUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Index != 0 {
		t.Fatalf("err = %v, want ClipUnavailableError for index 0", err)
	}
}

// records the order clips are requested in
type recordingSource struct {
	mu    sync.Mutex
	clips []*audio.Buffer
	asked []int
	fail  map[int]error
	block map[int]bool
}

func (s *recordingSource) Clip(ctx context.Context, index int) (*audio.Buffer, error) {
	s.mu.Lock()
	s.asked = append(s.asked, index)
	s.mu.Unlock()

	if s.block[index] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := s.fail[index]; err != nil {
		return nil, err
	}
	return s.clips[index], nil
}

func TestStitchFromMatchesStitch(t *testing.T) {
	cues := []Cue{
		{StartMs: 0, EndMs: 900},
		{StartMs: 1000, EndMs: 1500},
		{StartMs: 1600, EndMs: 3000},
	}
	clips := []*audio.Buffer{
		tone(t, mono24k, 1000, 1),
		tone(t, mono24k, 500, 2),
		tone(t, mono24k, 200, 3),
	}
	src := &recordingSource{clips: clips}

	fromSource, err := StitchFrom(context.Background(), cues, src, time.Second)
	if err != nil {
		t.Fatalf("StitchFrom: %v", err)
	}
	direct, err := Stitch(cues, clips)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if !bytes.Equal(fromSource.Bytes(), direct.Bytes()) {
		t.Error("StitchFrom and Stitch disagree")
	}
	for i, idx := range src.asked {
		if idx != i {
			t.Fatalf("clips requested out of order: %v", src.asked)
		}
	}
}

func TestStitchFromClipFailure(t *testing.T) {
	cues := []Cue{{StartMs: 0, EndMs: 100}, {StartMs: 100, EndMs: 200}}
	synthErr := errors.New("provider returned 500")
	src := &recordingSource{
		clips: []*audio.Buffer{tone(t, mono24k, 100, 0), nil},
		fail:  map[int]error{1: synthErr},
	}

	out, err := StitchFrom(context.Background(), cues, src, 0)
	if out != nil {
		t.Error("no partial buffer should be returned")
	}
	var unavailable *ClipUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *ClipUnavailableError", err)
	}
	if unavailable.Index != 1 {
		t.Errorf("Index = %d, want 1", unavailable.Index)
	}
	if !errors.Is(err, synthErr) {
		t.Error("ClipUnavailableError should wrap the source error")
	}
}

func TestStitchFromKeepsSourceNamedIndex(t *testing.T) {
	cues := []Cue{{StartMs: 0, EndMs: 100}, {StartMs: 100, EndMs: 200}, {StartMs: 200, EndMs: 300}}
	cause := &ClipUnavailableError{Index: 2, Err: errors.New("provider returned 500")}
	src := &recordingSource{fail: map[int]error{0: cause}}

	_, err := StitchFrom(context.Background(), cues, src, 0)
	var unavailable *ClipUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *ClipUnavailableError", err)
	}
	if unavailable.Index != 2 {
		t.Errorf("Index = %d, want the failing cue 2", unavailable.Index)
	}
}

func TestStitchFromWaitTimeout(t *testing.T) {
	cues := []Cue{{StartMs: 0, EndMs: 100}}
	src := &recordingSource{block: map[int]bool{0: true}}

	_, err := StitchFrom(context.Background(), cues, src, 20*time.Millisecond)
	var unavailable *ClipUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *ClipUnavailableError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want wrapped DeadlineExceeded", err)
	}
}

func TestStitchFromCancelled(t *testing.T) {
	cues := []Cue{{StartMs: 0, EndMs: 100}, {StartMs: 100, EndMs: 200}}
	src := &recordingSource{block: map[int]bool{0: true}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := StitchFrom(ctx, cues, src, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var unavailable *ClipUnavailableError
	if errors.As(err, &unavailable) {
		t.Error("cancellation should not be reported as an unavailable clip")
	}
}

func TestStitchFromValidatesBeforeFetching(t *testing.T) {
	cues := []Cue{{StartMs: 0, EndMs: 100}, {StartMs: 300, EndMs: 50}}
	src := &recordingSource{clips: []*audio.Buffer{tone(t, mono24k, 100, 0), nil}}

	_, err := StitchFrom(context.Background(), cues, src, 0)
	var malformed *MalformedCueError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want *MalformedCueError", err)
	}
	if len(src.asked) != 0 {
		t.Errorf("no clips should be requested for malformed input, got %v", src.asked)
	}
}
