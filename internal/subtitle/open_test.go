package subtitle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgpai22/dubline/internal/timeline"
)

func TestOpenSRTFile(t *testing.T) {
	content := `1
00:00:01,000 --> 00:00:04,000
Hello, world!

2
00:00:05,500 --> 00:00:08,200
This is a test.
With multiple lines.

3
00:00:10,000 --> 00:00:12,500
Final subtitle.
`
	srtPath := filepath.Join(t.TempDir(), "test.srt")
	if err := os.WriteFile(srtPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	sub, err := Open(srtPath)
	if err != nil {
		t.Fatalf("failed to open SRT file: %v", err)
	}

	if sub.Format != FormatSRT {
		t.Errorf("expected format SRT, got %s", sub.Format)
	}
	if len(sub.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(sub.Entries))
	}
	if sub.Entries[1].StartTime != 5500*time.Millisecond {
		t.Errorf("entry 1: expected start 5.5s, got %v", sub.Entries[1].StartTime)
	}

	expectedText := "This is a test.\nWith multiple lines."
	if sub.Entries[1].Text != expectedText {
		t.Errorf("entry 1: expected %q, got %q", expectedText, sub.Entries[1].Text)
	}

	if err := sub.SetText(0, "Modified text"); err != nil {
		t.Errorf("SetText failed: %v", err)
	}
	if sub.Entries[0].Text != "Modified text" {
		t.Errorf("SetText did not update text")
	}
	if err := sub.SetText(3, "x"); err == nil {
		t.Error("SetText out of range should fail")
	}
}

func TestOpenVTTFile(t *testing.T) {
	content := `WEBVTT
Kind: captions

NOTE This is a comment
spanning two lines

STYLE
::cue { color: yellow }

intro
00:00:01.000 --> 00:00:04.000 align:start position:10%
Hello from VTT!

00:05.500 --> 00:08.200
Short timestamp format.
`
	vttPath := filepath.Join(t.TempDir(), "test.vtt")
	if err := os.WriteFile(vttPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	sub, err := Open(vttPath)
	if err != nil {
		t.Fatalf("failed to open VTT file: %v", err)
	}

	if sub.Format != FormatVTT {
		t.Errorf("expected format VTT, got %s", sub.Format)
	}
	if len(sub.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(sub.Entries))
	}
	if sub.Entries[0].Text != "Hello from VTT!" {
		t.Errorf("entry 0 text = %q", sub.Entries[0].Text)
	}
	if sub.Entries[1].StartTime != 5500*time.Millisecond || sub.Entries[1].EndTime != 8200*time.Millisecond {
		t.Errorf("entry 1 timing = %v -> %v", sub.Entries[1].StartTime, sub.Entries[1].EndTime)
	}
}

func TestOpenUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ass")
	if err := os.WriteFile(path, []byte("[Script Info]"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for unsupported format")
	}
	if IsSubtitleFile(path) {
		t.Error("IsSubtitleFile(.ass) should be false")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	sub := &Subtitle{Entries: []Entry{
		{Index: 1, StartTime: 0, EndTime: time.Second, Text: "a"},
		{Index: 2, StartTime: 1500 * time.Millisecond, EndTime: 2 * time.Second, Text: "b\nsecond line"},
		{Index: 3, StartTime: time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond, EndTime: time.Hour + 2*time.Minute + 5*time.Second, Text: "late"},
	}}

	for _, name := range []string{"out.srt", "nested/out.vtt"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := WriteFile(sub, path); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if len(got.Entries) != len(sub.Entries) {
				t.Fatalf("got %d entries, want %d", len(got.Entries), len(sub.Entries))
			}
			for i := range sub.Entries {
				want, have := sub.Entries[i], got.Entries[i]
				if want.StartTime != have.StartTime || want.EndTime != have.EndTime || want.Text != have.Text {
					t.Errorf("entry %d = %+v, want %+v", i, have, want)
				}
			}
		})
	}
}

func TestCues(t *testing.T) {
	sub := &Subtitle{Entries: []Entry{
		{StartTime: 0, EndTime: time.Second, Text: "a"},
		{StartTime: 1500 * time.Millisecond, EndTime: 2 * time.Second, Text: "b"},
		{StartTime: -time.Second, EndTime: 1234567 * time.Microsecond, Text: "c"},
	}}

	want := []timeline.Cue{
		{StartMs: 0, EndMs: 1000, Text: "a"},
		{StartMs: 1500, EndMs: 2000, Text: "b"},
		{StartMs: 0, EndMs: 1234, Text: "c"},
	}
	got := sub.Cues()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cue %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if texts := sub.Texts(); len(texts) != 3 || texts[1] != "b" {
		t.Errorf("Texts() = %v", texts)
	}
}
