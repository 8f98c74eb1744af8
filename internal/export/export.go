package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/dubline/internal/audio"
)

const (
	DefaultFormat  = "mp3"
	DefaultBitrate = "192k"
)

// DefaultOutputPath names a track <dir>/segment_<sequence>.<format>.
func DefaultOutputPath(dir, sequence, format string) string {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		format = DefaultFormat
	}
	return filepath.Join(dir, fmt.Sprintf("segment_%s.%s", sequence, format))
}

// Export writes buf to path in the container picked by the extension. WAV is
// written in-process; other formats go through ffmpeg from a temporary WAV.
// The destination only appears once it is complete.
func Export(ctx context.Context, buf *audio.Buffer, path string) error {
	if buf == nil {
		return errors.New("nothing to export")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !audio.IsExportFormat(ext) {
		return fmt.Errorf("unsupported export format: %q", ext)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// staged next to the destination so the final rename stays on one filesystem
	stage, err := os.MkdirTemp(dir, ".dubline-export-*")
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(stage) }()

	wavPath := filepath.Join(stage, "track.wav")
	if err := audio.WriteWAVFile(wavPath, buf); err != nil {
		return err
	}

	staged := wavPath
	if ext != ".wav" {
		staged = filepath.Join(stage, "track"+ext)
		opts := audio.TranscodeOptions{
			SampleRate: buf.Format().SampleRate,
			Channels:   buf.Format().Channels,
			Bitrate:    DefaultBitrate,
		}
		if err := audio.Transcode(ctx, wavPath, staged, opts); err != nil {
			return fmt.Errorf("failed to encode %s: %w", ext, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(staged, path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
