package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// h:mm:ss,mmm (SRT) or h:mm:ss.mmm / mm:ss.mmm (VTT)
var timestampRegex = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})[,.](\d{1,3})$`)

func parseTimestamp(s string) (time.Duration, error) {
	m := timestampRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var h int
	if m[1] != "" {
		h, _ = strconv.Atoi(m[1])
	}
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if min > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	// "5" after the separator means 500ms
	fraction := m[4] + strings.Repeat("0", 3-len(m[4]))
	ms, _ := strconv.Atoi(fraction)

	return time.Duration(h)*time.Hour +
		time.Duration(min)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// parses "start --> end [settings]"; ok is false when line is not a timing line
func parseTiming(line string) (start, end time.Duration, ok bool, err error) {
	left, right, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, false, nil
	}

	// VTT cue settings follow the end timestamp
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, true, fmt.Errorf("missing end timestamp")
	}

	start, err = parseTimestamp(left)
	if err != nil {
		return 0, 0, true, err
	}
	end, err = parseTimestamp(fields[0])
	if err != nil {
		return 0, 0, true, err
	}
	return start, end, true, nil
}

func formatTimestamp(d time.Duration, sep string) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, seconds, sep, millis)
}
