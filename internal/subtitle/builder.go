package subtitle

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CueBuilder turns transcription segments into speakable entries. Long
// segments are split at word boundaries so each synthesized clip has a
// slot it can fill without heavy truncation.
type CueBuilder struct {
	MaxChars    int           // split segments with more runes than this
	MaxDuration time.Duration // split segments longer than this
}

func NewCueBuilder() *CueBuilder {
	return &CueBuilder{
		MaxChars:    84,
		MaxDuration: 7 * time.Second,
	}
}

// Build drops blank segments, repairs inverted intervals and splits long
// ones. Each piece of a split gets time in proportion to its rune count.
func (b *CueBuilder) Build(segments []Segment) *Subtitle {
	entries := make([]Entry, 0, len(segments))

	for _, seg := range segments {
		text := strings.Join(strings.Fields(seg.Text), " ")
		if text == "" {
			continue
		}
		if seg.EndTime < seg.StartTime {
			seg.EndTime = seg.StartTime
		}
		seg.Text = text

		for _, piece := range b.split(seg) {
			piece.Index = len(entries) + 1
			entries = append(entries, piece)
		}
	}

	return &Subtitle{Entries: entries, Format: FormatSRT}
}

func (b *CueBuilder) split(seg Segment) []Entry {
	total := seg.EndTime - seg.StartTime
	runes := utf8.RuneCountInString(seg.Text)

	parts := 1
	if b.MaxChars > 0 && runes > b.MaxChars {
		parts = (runes + b.MaxChars - 1) / b.MaxChars
	}
	if b.MaxDuration > 0 && total > b.MaxDuration {
		if n := int((total + b.MaxDuration - 1) / b.MaxDuration); n > parts {
			parts = n
		}
	}

	words := strings.Fields(seg.Text)
	if parts > len(words) {
		parts = len(words)
	}
	if parts <= 1 {
		return []Entry{{StartTime: seg.StartTime, EndTime: seg.EndTime, Text: seg.Text}}
	}

	groups := groupWords(words, parts)

	entries := make([]Entry, 0, len(groups))
	start := seg.StartTime
	consumed := 0
	for i, group := range groups {
		text := strings.Join(group, " ")
		consumed += utf8.RuneCountInString(text)

		end := seg.EndTime
		if i < len(groups)-1 {
			end = seg.StartTime + time.Duration(int64(total)*int64(consumed)/int64(runes))
		}
		entries = append(entries, Entry{StartTime: start, EndTime: end, Text: text})
		start = end
	}
	return entries
}

// splits words into n groups of roughly equal rune length, preferring to
// break after sentence punctuation
func groupWords(words []string, n int) [][]string {
	total := 0
	for _, w := range words {
		total += utf8.RuneCountInString(w) + 1
	}
	target := total / n

	var groups [][]string
	var current []string
	length := 0
	for i, w := range words {
		current = append(current, w)
		length += utf8.RuneCountInString(w) + 1

		remainingWords := len(words) - i - 1
		remainingGroups := n - len(groups) - 1
		if remainingGroups == 0 || remainingWords < remainingGroups {
			continue
		}
		full := length >= target
		sentenceEnd := length >= target*2/3 && endsSentence(w)
		if full || sentenceEnd || remainingWords == remainingGroups {
			groups = append(groups, current)
			current = nil
			length = 0
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") ||
		strings.HasSuffix(word, "?") ||
		strings.HasSuffix(word, "!") ||
		strings.HasSuffix(word, "。")
}
