package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseVTT reads WebVTT cues, skipping NOTE, STYLE and REGION blocks.
func ParseVTT(r io.Reader) (*Subtitle, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		entries   []Entry
		current   *Entry
		textLines []string
		lineNum   int
		skipBlock bool
	)

	flush := func() {
		if current != nil {
			current.Text = strings.Join(textLines, "\n")
			entries = append(entries, *current)
		}
		current = nil
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
			if !strings.HasPrefix(line, "WEBVTT") {
				return nil, fmt.Errorf("missing WEBVTT header")
			}
			skipBlock = true
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			skipBlock = false
			continue
		}
		if skipBlock {
			continue
		}

		if current == nil {
			if isMetadataBlock(trimmed) {
				skipBlock = true
				continue
			}
			start, end, ok, err := parseTiming(line)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp at line %d: %w", lineNum, err)
			}
			if ok {
				current = &Entry{Index: len(entries) + 1, StartTime: start, EndTime: end}
			}
			// anything else before the timing line is a cue identifier
			continue
		}

		textLines = append(textLines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading VTT: %w", err)
	}

	return &Subtitle{Entries: entries, Format: FormatVTT}, nil
}

func isMetadataBlock(line string) bool {
	for _, prefix := range []string{"NOTE", "STYLE", "REGION"} {
		if line == prefix || strings.HasPrefix(line, prefix+" ") {
			return true
		}
	}
	return false
}

func WriteVTT(w io.Writer, sub *Subtitle) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("WEBVTT\n\n")
	for i, entry := range sub.Entries {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(entry.StartTime, "."),
			formatTimestamp(entry.EndTime, "."),
			entry.Text,
		)
	}
	return bw.Flush()
}
