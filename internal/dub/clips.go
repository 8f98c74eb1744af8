package dub

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgpai22/dubline/internal/audio"
	"github.com/mgpai22/dubline/internal/timeline"
)

// DirSource serves pre-rendered clips named segment_<index>.<ext> from Dir,
// decoding each one when the stitcher asks for it. A cue in Cues with blank
// text and no file gets an empty clip in Format.
type DirSource struct {
	Dir     string
	Decoder audio.Decoder
	Format  audio.Format
	Cues    []timeline.Cue
}

var _ timeline.ClipSource = DirSource{}

func (s DirSource) Clip(ctx context.Context, index int) (*audio.Buffer, error) {
	path, err := s.find(index)
	if err != nil {
		if s.blank(index) {
			return audio.Empty(s.Format), nil
		}
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	clip, err := s.Decoder.Decode(ctx, data, contentTypeFor(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return clip, nil
}

func (s DirSource) blank(index int) bool {
	return index >= 0 && index < len(s.Cues) && strings.TrimSpace(s.Cues[index].Text) == ""
}

// first audio file for index in name order, so segment_3.mp3 beats segment_3.wav
func (s DirSource) find(index int) (string, error) {
	pattern := filepath.Join(s.Dir, fmt.Sprintf("segment_%d.*", index))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if audio.IsAudioFile(m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("no clip file for cue %d in %s", index, s.Dir)
}

func contentTypeFor(path string) string {
	ext := filepath.Ext(path)
	if ext == ".wav" {
		return "audio/wav"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
