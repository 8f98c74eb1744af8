package subtitle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Open parses an SRT or WebVTT file chosen by extension.
func Open(path string) (*Subtitle, error) {
	format, err := FormatFromExtension(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer file.Close()

	return Parse(file, format)
}

func Parse(r io.Reader, format Format) (*Subtitle, error) {
	switch format {
	case FormatSRT:
		return ParseSRT(r)
	case FormatVTT:
		return ParseVTT(r)
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %s", format)
	}
}

// WriteFile writes sub in the format implied by path's extension.
func WriteFile(sub *Subtitle, path string) error {
	format, err := FormatFromExtension(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create subtitle file: %w", err)
	}

	switch format {
	case FormatVTT:
		err = WriteVTT(file, sub)
	default:
		err = WriteSRT(file, sub)
	}
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return file.Close()
}

func FormatFromExtension(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".srt":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format: %s", ext)
	}
}

func IsSubtitleFile(path string) bool {
	_, err := FormatFromExtension(path)
	return err == nil
}
