package dub

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mgpai22/dubline/internal/audio"
	"github.com/mgpai22/dubline/internal/timeline"
)

func TestDirSourceStitch(t *testing.T) {
	dir := t.TempDir()
	for i, ms := range []uint64{800, 700} {
		path := filepath.Join(dir, "segment_"+string(rune('0'+i))+".wav")
		if err := os.WriteFile(path, wavBytes(t, ms), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// not audio, must be ignored
	if err := os.WriteFile(filepath.Join(dir, "segment_0.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := DirSource{Dir: dir, Decoder: audio.WAVDecoder{Format: audio.DefaultFormat()}}
	cues := []timeline.Cue{
		{StartMs: 0, EndMs: 1000, Text: "a"},
		{StartMs: 1500, EndMs: 2000, Text: "b"},
	}

	track, err := timeline.StitchFrom(context.Background(), cues, src, 0)
	if err != nil {
		t.Fatalf("StitchFrom: %v", err)
	}
	if track.DurationMs() != 2000 {
		t.Errorf("duration = %dms, want 2000", track.DurationMs())
	}
}

func TestDirSourceMissingClip(t *testing.T) {
	src := DirSource{Dir: t.TempDir(), Decoder: audio.WAVDecoder{Format: audio.DefaultFormat()}}
	cues := []timeline.Cue{{StartMs: 0, EndMs: 100, Text: "a"}}

	_, err := timeline.StitchFrom(context.Background(), cues, src, 0)
	var unavailable *timeline.ClipUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Index != 0 {
		t.Fatalf("expected ClipUnavailableError for cue 0, got %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := contentTypeFor("a/segment_1.wav"); got != "audio/wav" {
		t.Errorf("wav content type = %q", got)
	}
	if got := contentTypeFor("a/segment_1.unknownext"); got != "application/octet-stream" {
		t.Errorf("fallback content type = %q", got)
	}
}

func TestDirSourceBlankCueWithoutFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "segment_1.wav"), wavBytes(t, 500), 0o644); err != nil {
		t.Fatal(err)
	}

	cues := []timeline.Cue{
		{StartMs: 0, EndMs: 400, Text: "  "},
		{StartMs: 400, EndMs: 900, Text: "b"},
	}
	src := DirSource{
		Dir:     dir,
		Decoder: audio.WAVDecoder{Format: audio.DefaultFormat()},
		Format:  audio.DefaultFormat(),
		Cues:    cues,
	}

	track, err := timeline.StitchFrom(context.Background(), cues, src, 0)
	if err != nil {
		t.Fatalf("StitchFrom: %v", err)
	}
	if track.DurationMs() != 900 {
		t.Errorf("duration = %dms, want 900", track.DurationMs())
	}
	if !track.IsSilent(0, track.Format().FramesFor(400)) {
		t.Error("blank cue slot should be silent")
	}
}
