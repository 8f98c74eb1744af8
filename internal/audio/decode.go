package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Decoder turns provider audio bytes into a buffer of one fixed format.
type Decoder interface {
	Decode(ctx context.Context, data []byte, contentType string) (*Buffer, error)
}

// accepts only WAV input that already matches Format
type WAVDecoder struct {
	Format Format
}

func (d WAVDecoder) Decode(
	ctx context.Context,
	data []byte,
	contentType string,
) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := DecodeWAVBytes(data)
	if err != nil {
		return nil, err
	}
	if buf.Format() != d.Format {
		return nil, fmt.Errorf(
			"%w: clip is %s, run format is %s",
			ErrInvalidFormat,
			buf.Format(),
			d.Format,
		)
	}
	return buf, nil
}

// FFmpegDecoder resamples anything ffmpeg can read to Format. WAV input that
// already matches is decoded in-process.
type FFmpegDecoder struct {
	Format  Format
	TempDir string // scratch space, os.TempDir() when empty
}

func (d FFmpegDecoder) Decode(
	ctx context.Context,
	data []byte,
	contentType string,
) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if isWAVContent(contentType) {
		if buf, err := (WAVDecoder{Format: d.Format}).Decode(ctx, data, contentType); err == nil {
			return buf, nil
		}
	}

	dir, err := os.MkdirTemp(d.TempDir, "decode-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create decode dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	inPath := filepath.Join(dir, "clip"+extensionFor(contentType))
	if err := os.WriteFile(inPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write clip: %w", err)
	}

	outPath := filepath.Join(dir, "clip_norm.wav")
	if err := Transcode(ctx, inPath, outPath, WAVOptions(d.Format)); err != nil {
		return nil, err
	}

	buf, err := ReadWAVFile(outPath)
	if err != nil {
		return nil, err
	}
	if buf.Format() != d.Format {
		return nil, fmt.Errorf(
			"%w: ffmpeg produced %s, want %s",
			ErrInvalidFormat,
			buf.Format(),
			d.Format,
		)
	}
	return buf, nil
}

func isWAVContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "wav")
}

func extensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return ".mp3"
	case strings.Contains(ct, "aac"):
		return ".aac"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return ".ogg"
	default:
		return ".wav"
	}
}

func ReadWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	buf, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return buf, nil
}

func WriteWAVFile(path string, buf *Buffer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeWAV(f, buf); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
