package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseSRT reads SubRip cues. Entries whose text is empty are kept so the
// timeline still reserves their slot.
func ParseSRT(r io.Reader) (*Subtitle, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		entries   []Entry
		current   *Entry
		textLines []string
		lineNum   int
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
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if current == nil {
			if start, end, ok, err := parseTiming(line); ok {
				// timing line without a preceding counter
				if err != nil {
					return nil, fmt.Errorf("invalid timestamp at line %d: %w", lineNum, err)
				}
				current = &Entry{Index: len(entries) + 1, StartTime: start, EndTime: end}
				continue
			}

			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, fmt.Errorf("expected cue number at line %d, got %q", lineNum, line)
			}
			if !scanner.Scan() {
				return nil, fmt.Errorf("missing timing line after cue %d", index)
			}
			lineNum++
			start, end, ok, err := parseTiming(scanner.Text())
			if !ok {
				return nil, fmt.Errorf("expected timing line at line %d", lineNum)
			}
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp at line %d: %w", lineNum, err)
			}
			current = &Entry{Index: index, StartTime: start, EndTime: end}
			continue
		}

		textLines = append(textLines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT: %w", err)
	}

	return &Subtitle{Entries: entries, Format: FormatSRT}, nil
}

func WriteSRT(w io.Writer, sub *Subtitle) error {
	bw := bufio.NewWriter(w)
	for i, entry := range sub.Entries {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(entry.StartTime, ","),
			formatTimestamp(entry.EndTime, ","),
			entry.Text,
		)
	}
	return bw.Flush()
}
